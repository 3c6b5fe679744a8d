package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ListPeople returns people matching f with their primary company and types.
func (s *Service) ListPeople(ctx context.Context, f Filters) ([]Person, error) {
	return s.store.ListPeople(ctx, f)
}

// ListCompanies returns companies matching f.
func (s *Service) ListCompanies(ctx context.Context, f Filters) ([]Company, error) {
	return s.store.ListCompanies(ctx, f)
}

// ListSchools returns schools matching f.
func (s *Service) ListSchools(ctx context.Context, f Filters) ([]School, error) {
	return s.store.ListSchools(ctx, f)
}

// GetEntity returns one person, company or school by id.
func (s *Service) GetEntity(ctx context.Context, et EntityType, id int64) (any, error) {
	switch et {
	case EntityPeople:
		return s.store.GetPerson(ctx, id)
	case EntityCompanies:
		return s.store.GetCompany(ctx, id)
	case EntitySchools:
		return s.store.GetSchool(ctx, id)
	default:
		return nil, Validationf("unknown entity type %q", et)
	}
}

// CreateEntity creates one entity from a JSON-style body keyed by canonical
// field name. It uses the same closed schema, conversion and best-effort
// duplicate check as import, so a matching natural key returns ErrDuplicate.
//
// People also accept "school_id" to link a school.
func (s *Service) CreateEntity(ctx context.Context, req Requester, et EntityType, body map[string]any) (any, error) {
	def, err := MustGet(et)
	if err != nil {
		return nil, err
	}

	row := make(MappedRow, len(body))
	var schoolID *int64
	var unknown []string
	for k, v := range body {
		if et == EntityPeople && k == "school_id" {
			if schoolID, err = coerceID("school_id", v); err != nil {
				return nil, err
			}
			continue
		}
		if _, ok := def.Field(k); !ok {
			unknown = append(unknown, k)
			continue
		}
		row[k] = bodyString(v)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Message: "unknown fields: " + strings.Join(unknown, ", "), Fields: unknown}
	}
	if missing := MissingRequired(row, def.Fields); len(missing) > 0 {
		return nil, &ValidationError{Message: "missing required fields: " + strings.Join(missing, ", "), Fields: missing}
	}
	if e := row.Email("email"); e != "" && !ValidEmail(e) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid email %q", e), Fields: []string{"email"}}
	}

	rec, err := def.Build(row)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.store.InTx(ctx, func(tx Store) error {
		var err error
		if id, err = insertUnique(ctx, tx, def, rec); err != nil {
			return err
		}
		if schoolID != nil {
			return tx.LinkPersonSchool(ctx, id, *schoolID, true)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", et, err)
	}

	s.LogAudit(ctx, AuditParams{
		Action:       ActionEntityCreate,
		EntityType:   et,
		UserID:       req.UserID,
		RowsAffected: 1,
		Reason:       def.NaturalKey(rec),
	})
	return s.GetEntity(ctx, et, id)
}

// bodyString converts a decoded JSON value to the text a CSV cell would hold.
func bodyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// DeleteEntity deletes an entity. Admin only. Junction rows go with it;
// donations keep their row with the reference cleared.
func (s *Service) DeleteEntity(ctx context.Context, req Requester, et EntityType, id int64) error {
	if !req.IsAdmin {
		return fmt.Errorf("delete %s: %w", et, ErrForbidden)
	}
	if _, err := MustGet(et); err != nil {
		return err
	}
	if err := s.store.DeleteEntity(ctx, et, id); err != nil {
		return fmt.Errorf("delete %s %d: %w", et, id, err)
	}

	s.LogAudit(ctx, AuditParams{
		Action:       ActionEntityDelete,
		EntityType:   et,
		UserID:       req.UserID,
		RowsAffected: 1,
		Reason:       strconv.FormatInt(id, 10),
	})
	return nil
}

// ListPersonTypes returns person types by sort order, then name.
func (s *Service) ListPersonTypes(ctx context.Context) ([]PersonType, error) {
	return s.store.ListPersonTypes(ctx)
}

// PersonTypeInput is the body of a person type create request.
type PersonTypeInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreatePersonType adds a person type. Admin only; names are unique.
func (s *Service) CreatePersonType(ctx context.Context, req Requester, in PersonTypeInput) (PersonType, error) {
	if !req.IsAdmin {
		return PersonType{}, fmt.Errorf("create person type: %w", ErrForbidden)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return PersonType{}, err
	}
	pt, err := s.store.CreatePersonType(ctx, in.Name)
	if err != nil {
		return PersonType{}, fmt.Errorf("create person type: %w", err)
	}
	return pt, nil
}
