package service

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"text/template"
	"time"

	"certalert/internal/entity"
)

const _expiryDateLayout = "January 2, 2006"

// View is the per-tier presentation model. Content and escalation policy live here
// so they can be asserted without inspecting rendered text.
type View struct {
	Tier              entity.Tier
	Urgency           int
	Label             string
	NotifiedRoles     []entity.Role
	ListRoles         bool
	ShowSafetyContact bool
	WorkRestricted    bool
	StatusChanged     bool
}

var views = map[entity.Tier]View{
	entity.Tier60Day: {
		Tier:          entity.Tier60Day,
		Urgency:       entity.Tier60Day.Urgency(),
		Label:         "Reminder",
		NotifiedRoles: entity.EscalationRoles(entity.Tier60Day),
	},
	entity.Tier30Day: {
		Tier:          entity.Tier30Day,
		Urgency:       entity.Tier30Day.Urgency(),
		Label:         "Important",
		NotifiedRoles: entity.EscalationRoles(entity.Tier30Day),
	},
	entity.Tier7Day: {
		Tier:              entity.Tier7Day,
		Urgency:           entity.Tier7Day.Urgency(),
		Label:             "URGENT",
		NotifiedRoles:     entity.EscalationRoles(entity.Tier7Day),
		ListRoles:         true,
		ShowSafetyContact: true,
	},
	entity.TierExpired: {
		Tier:              entity.TierExpired,
		Urgency:           entity.TierExpired.Urgency(),
		Label:             "EXPIRED",
		NotifiedRoles:     entity.EscalationRoles(entity.TierExpired),
		ListRoles:         true,
		ShowSafetyContact: true,
		WorkRestricted:    true,
		StatusChanged:     true,
	},
}

// ViewFor returns the presentation model for tier.
func ViewFor(tier entity.Tier) (View, error) {
	v, ok := views[tier]
	if !ok {
		return View{}, fmt.Errorf("service.ViewFor: tier %q: %w", tier, entity.ErrInvalidData)
	}
	return v, nil
}

type RenderInput struct {
	Certification entity.Certification
	Worker        entity.Worker
	Company       entity.Company
	Recipients    []Recipient
	Today         time.Time
}

type Content struct {
	View     View
	Subject  string
	TextBody string
	HTMLBody string
}

type templateData struct {
	View
	CertName        string
	CertCode        string
	CertNumber      string
	ExpiryDate      string
	DaysRemaining   string
	WorkerFirstName string
	CompanyName     string
	CompanyPhone    string
	SafetyManager   safetyContact
	RoleLabels      []string
	Informed        informed
}

// informed records which escalation roles actually received the message.
type informed struct {
	Supervisor bool
	Safety     bool
}

type safetyContact struct {
	Name  string
	Email string
	Phone string
}

func (c safetyContact) Present() bool {
	return c.Name != "" || c.Email != "" || c.Phone != ""
}

type variant struct {
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

// Renderer produces tier-specific notification content.
type Renderer struct {
	variants map[entity.Tier]variant
}

func NewRenderer() (*Renderer, error) {
	const op = "service.NewRenderer"

	r := &Renderer{variants: make(map[entity.Tier]variant, len(entity.Tiers))}
	for _, tier := range entity.Tiers {
		src, ok := tierTemplates[tier]
		if !ok {
			return nil, fmt.Errorf("%s: no template for tier %s", op, tier)
		}

		subject, err := template.New("subject").Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("%s: parse %s subject: %w", op, tier, err)
		}
		text, err := template.New("text").Parse(src.text + textPartials)
		if err != nil {
			return nil, fmt.Errorf("%s: parse %s text: %w", op, tier, err)
		}
		html, err := htmltemplate.New("html").Parse(htmlLayout + src.html + htmlPartials)
		if err != nil {
			return nil, fmt.Errorf("%s: parse %s html: %w", op, tier, err)
		}

		r.variants[tier] = variant{subject: subject, text: text, html: html}
	}

	return r, nil
}

func (r *Renderer) Render(tier entity.Tier, in RenderInput) (Content, error) {
	const op = "service.Renderer.Render"

	view, err := ViewFor(tier)
	if err != nil {
		return Content{}, fmt.Errorf("%s: %w", op, err)
	}
	v := r.variants[tier]

	if in.Certification.ExpiryDate == nil {
		return Content{}, fmt.Errorf("%s: certification %s has no expiry date: %w", op, in.Certification.ID, entity.ErrMissingData)
	}

	data := templateData{
		View:            view,
		CertName:        in.Certification.Type.Name,
		CertCode:        in.Certification.Type.Code,
		CertNumber:      in.Certification.CertificateNumber,
		ExpiryDate:      in.Certification.ExpiryDate.Format(_expiryDateLayout),
		DaysRemaining:   daysRemaining(tier, *in.Certification.ExpiryDate, in.Today),
		WorkerFirstName: in.Worker.FirstName,
		CompanyName:     in.Company.Name,
		CompanyPhone:    in.Company.Phone,
		SafetyManager: safetyContact{
			Name:  in.Company.SafetyManagerName,
			Email: in.Company.SafetyManagerEmail,
			Phone: in.Company.SafetyManagerPhone,
		},
	}
	data.StatusChanged = view.StatusChanged && in.Certification.Status == entity.CertificationExpired

	reached := make(map[entity.Role]bool, len(in.Recipients))
	for _, rc := range in.Recipients {
		reached[rc.Role] = true
	}
	for _, role := range view.NotifiedRoles {
		if reached[role] {
			data.RoleLabels = append(data.RoleLabels, roleLabel(role))
		}
	}
	data.Informed = informed{
		Supervisor: reached[entity.RoleSupervisor],
		Safety:     reached[entity.RoleAdmin],
	}

	var subject, text, html bytes.Buffer
	if err := v.subject.Execute(&subject, data); err != nil {
		return Content{}, fmt.Errorf("%s: subject: %w", op, err)
	}
	if err := v.text.Execute(&text, data); err != nil {
		return Content{}, fmt.Errorf("%s: text body: %w", op, err)
	}
	if err := v.html.Execute(&html, data); err != nil {
		return Content{}, fmt.Errorf("%s: html body: %w", op, err)
	}

	return Content{
		View:     view,
		Subject:  subject.String(),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

func daysRemaining(tier entity.Tier, expiry, today time.Time) string {
	days := entity.DaysUntil(expiry, today)
	if tier == entity.TierExpired || days <= 0 {
		return "EXPIRED"
	}
	return strconv.Itoa(days)
}

func roleLabel(role entity.Role) string {
	switch role {
	case entity.RoleSupervisor:
		return "Supervisor"
	case entity.RoleAdmin:
		return "Safety Manager / Administrator"
	case entity.RoleInternalAuditor:
		return "Internal Auditor"
	case entity.RoleWorker:
		return "Worker"
	}
	return string(role)
}
