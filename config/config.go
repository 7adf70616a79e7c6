// Package config holds the diploma configuration edited by users, its
// persistence, and the process settings of the diplomagen binary.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// StorageKey is the key the configuration is persisted under.
const StorageKey = "diploma-storage"

// Logo is one image shown in the diploma header, in display order.
type Logo struct {
	ID  string `json:"id"`
	Src string `json:"src" validate:"required"`
}

// Signer is one signature block at the bottom of the diploma.
type Signer struct {
	ID             string `json:"id"`
	Role           string `json:"role" validate:"required"`
	Name           string `json:"name"`
	SignatureImage string `json:"signatureImage,omitempty"`
}

// SignerPatch holds the fields UpdateSigner changes. Nil fields are left
// untouched.
type SignerPatch struct {
	Role           *string `json:"role,omitempty"`
	Name           *string `json:"name,omitempty"`
	SignatureImage *string `json:"signatureImage,omitempty"`
}

// Palette is the color scheme applied to a design. Empty colors fall back
// to the design's defaults.
type Palette struct {
	Primary    string `json:"primary,omitempty" validate:"omitempty,hexcolor"`
	Secondary  string `json:"secondary,omitempty" validate:"omitempty,hexcolor"`
	Background string `json:"background,omitempty" validate:"omitempty,hexcolor"`
	Text       string `json:"text,omitempty" validate:"omitempty,hexcolor"`
}

// Configuration describes everything a diploma shows besides the student.
type Configuration struct {
	InstitutionName     string `json:"institutionName"`
	InstitutionFontSize int    `json:"institutionFontSize,omitempty" validate:"omitempty,min=8,max=96"`
	Motto               string `json:"motto,omitempty"`
	Title               string `json:"title"`
	Subtitle            string `json:"subtitle,omitempty"`
	Level               string `json:"level"`

	Logos []Logo `json:"logos" validate:"dive"`

	// TemplateText may contain {{Field}} placeholders.
	TemplateText string `json:"templateText"`
	DatePlace    string `json:"datePlace"`

	Signers []Signer `json:"signers" validate:"dive"`

	Theme       string  `json:"theme,omitempty"`
	Design      string  `json:"design"`
	Palette     Palette `json:"palette"`
	ShowMedal   bool    `json:"showMedal"`
	Watermark   bool    `json:"watermark"`
	Orientation string  `json:"orientation" validate:"omitempty,oneof=landscape portrait"`
}

// Defaults returns the configuration a fresh installation starts with.
func Defaults() Configuration {
	return Configuration{
		InstitutionName: "INSTITUCIÓN EDUCATIVA",
		Title:           "DIPLOMA",
		Level:           "Primaria",
		Logos:           []Logo{},
		TemplateText: "Estudiante del {{Grado}} del nivel {{Nivel}}, por haber ocupado el {{Puesto}} " +
			"en mérito al logro de los aprendizajes durante el año escolar 2025.",
		DatePlace: "Ciudad, 30 de Diciembre de 2025",
		Signers: []Signer{
			{ID: "1", Role: "DIRECTOR"},
			{ID: "2", Role: "SUB DIRECTOR"},
			{ID: "3", Role: "TUTOR"},
		},
		Theme:  "modern-slate",
		Design: "secundaria-01",
		Palette: Palette{
			Primary:    "#2563EB",
			Secondary:  "#10B981",
			Background: "#ffffff",
			Text:       "#1e293b",
		},
		Watermark:   true,
		Orientation: "landscape",
	}
}

// Snapshot returns a deep copy of c. Exports work on a snapshot so edits
// made while a batch runs do not leak into it.
func (c *Configuration) Snapshot() Configuration {
	s := *c
	s.Logos = append([]Logo(nil), c.Logos...)
	s.Signers = append([]Signer(nil), c.Signers...)
	return s
}

// AddSigner appends a new blank signer and returns it.
func (c *Configuration) AddSigner() Signer {
	s := Signer{ID: uuid.NewString(), Role: "NUEVO CARGO"}
	c.Signers = append(c.Signers, s)
	return s
}

// RemoveSigner removes the signer with the given id. It reports whether a
// signer was removed.
func (c *Configuration) RemoveSigner(id string) bool {
	for i, s := range c.Signers {
		if s.ID == id {
			c.Signers = append(c.Signers[:i:i], c.Signers[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateSigner applies p to the signer with the given id.
func (c *Configuration) UpdateSigner(id string, p SignerPatch) bool {
	for i := range c.Signers {
		if c.Signers[i].ID != id {
			continue
		}
		if p.Role != nil {
			c.Signers[i].Role = *p.Role
		}
		if p.Name != nil {
			c.Signers[i].Name = *p.Name
		}
		if p.SignatureImage != nil {
			c.Signers[i].SignatureImage = *p.SignatureImage
		}
		return true
	}
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonTagName)
	})
	return validate
}

// jsonTagName reports fields by their JSON name.
func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Validate checks c for values no design can render.
func Validate(c Configuration) error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return &ValidationError{Fields: msgs}
}

// ValidationError lists the invalid fields of a Configuration.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "config: invalid configuration: " + strings.Join(e.Fields, "; ")
}
