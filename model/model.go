package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User mirrors the identity provider's account record. Authentication
// itself happens upstream; we keep a row per account so contacts and SMS
// requests have something to hang off.
type User struct {
	ID       string       `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string       `gorm:"unique;not null" json:"email"`
	Name     string       `json:"name"`
	Role     string       `gorm:"not null;default:'user';check:role IN ('user','admin')" json:"role"`
	Contacts []Contact    `gorm:"foreignKey:UserID" json:"contacts,omitempty"`
	Requests []SMSRequest `gorm:"foreignKey:UserID" json:"requests,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Contact is one registered contact. RUT is stored in canonical
// body-dash-checkdigit form; uniqueness per owner is enforced in the
// service layer because contacts without a RUT are allowed.
type Contact struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index:idx_contacts_owner_rut" json:"user_id"`
	RUT         string    `gorm:"index:idx_contacts_owner_rut" json:"rut"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Comuna      string    `json:"comuna"`
	Region      string    `json:"region"`
	Nationality string    `json:"nationality"`
	Email       string    `json:"email"`
	Instagram   string    `json:"instagram"`
	Facebook    string    `json:"facebook"`
	Twitter     string    `json:"twitter"`
	Tag1        string    `json:"tag1"`
	Tag2        string    `json:"tag2"`
	Tag3        string    `json:"tag3"`
	Comment     string    `json:"comment"`
	PadronID    *uint     `json:"padron_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// SMS request statuses. Transitions are pending -> completed and
// pending -> cancelled only.
const (
	SMSStatusPending   = "pending"
	SMSStatusCompleted = "completed"
	SMSStatusCancelled = "cancelled"
)

type SMSRequest struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Message     string    `gorm:"not null" json:"message"`
	ContactsQty int       `gorm:"not null" json:"contacts_qty"`
	Price       int       `gorm:"not null" json:"price"`
	Status      string    `gorm:"not null;check:status IN ('pending','completed','cancelled')" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *SMSRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// PadronRow is one record of the pre-loaded national voter registry.
// Read-only for the application; only the loader writes it. RUN holds the
// ID body without check digit, DV the check digit, as published.
type PadronRow struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Nombres         string `json:"nombres"`
	ApellidoPat     string `gorm:"column:apellido_paterno" json:"apellido_paterno"`
	ApellidoMat     string `gorm:"column:apellido_materno" json:"apellido_materno"`
	RUN             string `gorm:"column:run;index" json:"run"`
	DV              string `gorm:"column:dv" json:"dv"`
	Sexo            string `json:"sexo"`
	Calle           string `json:"calle"`
	Numero          string `json:"numero"`
	Letra           string `json:"letra"`
	RestoDomicilio  string `json:"resto_domicilio"`
	Circunscripcion string `gorm:"column:circunscripcion" json:"circunscripcion"`
	Comuna          string `json:"comuna"`
	Provincia       string `json:"provincia"`
	Region          string `json:"region"`
	Pais            string `json:"pais"`
	Mesa            string `json:"mesa"`
}

func (PadronRow) TableName() string { return "padron_data" }
