package service

import (
	"context"
	"fmt"
	"strings"

	"certalert/internal/entity"
)

type Recipient struct {
	Role  entity.Role
	Name  string
	Email string
}

// Resolver computes the escalating, deduplicated recipient list for a tier.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve always starts with the worker, then one holder of each escalation role
// for the tier. The admin role falls back to the company's safety manager when
// no contact holds it. An empty result is entity.ErrNoRecipients.
func (r *Resolver) Resolve(ctx context.Context, tier entity.Tier, worker *entity.Worker, company *entity.Company) ([]Recipient, error) {
	const op = "service.Resolver.Resolve"

	if !tier.IsValid() {
		return nil, fmt.Errorf("%s: tier %q: %w", op, tier, entity.ErrInvalidData)
	}
	if company == nil {
		return nil, fmt.Errorf("%s: company: %w", op, entity.ErrMissingData)
	}

	var (
		out  []Recipient
		seen = make(map[string]struct{})
	)
	add := func(rc Recipient) {
		key := strings.ToLower(strings.TrimSpace(rc.Email))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		rc.Email = strings.TrimSpace(rc.Email)
		out = append(out, rc)
	}

	if worker != nil {
		add(Recipient{
			Role:  entity.RoleWorker,
			Name:  strings.TrimSpace(worker.FirstName + " " + worker.LastName),
			Email: worker.Email,
		})
	}

	for _, role := range entity.EscalationRoles(tier) {
		contact, err := r.dir.FindContactByRole(ctx, company.ID, role)
		if err != nil {
			return nil, fmt.Errorf("%s: lookup %s: %w", op, role, err)
		}

		switch {
		case contact != nil:
			add(Recipient{Role: role, Name: contact.Name, Email: contact.Email})
		case role == entity.RoleAdmin && company.SafetyManagerEmail != "":
			add(Recipient{Role: role, Name: company.SafetyManagerName, Email: company.SafetyManagerEmail})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: tier %s company %s: %w", op, tier, company.ID, entity.ErrNoRecipients)
	}

	return out, nil
}

func addresses(rcs []Recipient) []string {
	res := make([]string, 0, len(rcs))
	for _, rc := range rcs {
		res = append(res, rc.Email)
	}
	return res
}
