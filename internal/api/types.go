package api

import (
	"github.com/shopspring/decimal"
)

// Role identifies what an authenticated identity may do.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

// AppointmentStatus is the server-side lifecycle of an appointment.
type AppointmentStatus string

const (
	StatusUpcoming  AppointmentStatus = "UPCOMING"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// Doctor is a directory entry. Immutable on the client.
type Doctor struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Specialty    string          `json:"specialty"`
	Hospital     string          `json:"hospital"`
	Fee          decimal.Decimal `json:"fee"`
	Image        string          `json:"image,omitempty"`
	Availability string          `json:"availability,omitempty"`
	Experience   string          `json:"experience,omitempty"`
}

// Service is a marketing entry shown on the home page.
type Service struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Testimonial is a patient quote shown on the home page.
type Testimonial struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Text   string `json:"text"`
	Rating int    `json:"rating,omitempty"`
	Image  string `json:"image,omitempty"`
}

// User is an authenticated identity as returned by the identity provider.
// Token is only populated by login and registration responses.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  Role   `json:"role"`
	Token string `json:"token,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the patient sign-up payload.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
}

// DoctorRegistration is the doctor sign-up payload.
type DoctorRegistration struct {
	Name       string          `json:"name" validate:"required"`
	Email      string          `json:"email" validate:"required,email"`
	Password   string          `json:"password" validate:"required,min=6"`
	Specialty  string          `json:"specialty" validate:"required"`
	Hospital   string          `json:"hospital" validate:"required"`
	Experience string          `json:"experience" validate:"required"`
	Fee        decimal.Decimal `json:"fee"`
	Image      string          `json:"image,omitempty"`
	Role       Role            `json:"role"`
}

// Order is a server-issued payment intent.
type Order struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// PaymentProof is what the gateway hands back on success. Forwarded verbatim to verification.
type PaymentProof struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// AppointmentRequest is the persist payload.
type AppointmentRequest struct {
	PatientID int64             `json:"patientId"`
	DoctorID  int64             `json:"doctorId"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Status    AppointmentStatus `json:"status"`
	PaymentID string            `json:"paymentId"`
}

// Appointment is a persisted appointment. Listing endpoints embed the counterpart records.
type Appointment struct {
	ID        int64             `json:"id"`
	PatientID int64             `json:"patientId,omitempty"`
	DoctorID  int64             `json:"doctorId,omitempty"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Status    AppointmentStatus `json:"status"`
	PaymentID string            `json:"paymentId,omitempty"`
	Doctor    *Doctor           `json:"doctor,omitempty"`
	Patient   *User             `json:"patient,omitempty"`
}

// DoctorRef returns the doctor id whether the server embedded the record or not.
func (a Appointment) DoctorRef() int64 {
	if a.Doctor != nil && a.Doctor.ID != 0 {
		return a.Doctor.ID
	}
	return a.DoctorID
}

// PatientRef returns the patient id whether the server embedded the record or not.
func (a Appointment) PatientRef() int64 {
	if a.Patient != nil && a.Patient.ID != 0 {
		return a.Patient.ID
	}
	return a.PatientID
}
