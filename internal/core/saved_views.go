package core

// saved_views.go stores named filter snapshots for the list pages.
//
// Visibility: the owner always, everyone else only when IsShared.
// Mutation: the owner or an admin; anyone else gets ErrForbidden.
// A view the requester cannot see is reported as ErrNotFound so its
// existence is not leaked.
//
// FilterState is stored as-is. The only check is that it is a JSON object;
// its keys belong to the list page that applies it.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SavedViewInput is the body of a create request.
type SavedViewInput struct {
	Name        string          `json:"name" validate:"required,max=100"`
	EntityType  string          `json:"entity_type" validate:"required,oneof=people companies schools"`
	FilterState json.RawMessage `json:"filter_state"`
	IsShared    bool            `json:"is_shared"`
}

// SavedViewUpdate is the body of an update request. Nil fields are unchanged.
type SavedViewUpdate struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=100"`
	FilterState json.RawMessage `json:"filter_state"`
	IsShared    *bool           `json:"is_shared"`
}

// AppliedView is a view's filter state ready for a list page.
type AppliedView struct {
	View        SavedView       `json:"view"`
	FilterState json.RawMessage `json:"filter_state"`
	Query       string          `json:"query"` // URL-encoded query string
}

// normalizeFilterState checks raw is a JSON object and compacts it.
// Empty input becomes {}.
func normalizeFilterState(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return json.RawMessage(`{}`), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &ValidationError{Message: "filter_state must be a JSON object", Fields: []string{"filter_state"}}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, &ValidationError{Message: "filter_state must be a JSON object", Fields: []string{"filter_state"}}
	}
	return buf.Bytes(), nil
}

// CreateSavedView saves a new view owned by the requester.
func (s *Service) CreateSavedView(ctx context.Context, req Requester, in SavedViewInput) (SavedView, error) {
	if req.UserID == "" {
		return SavedView{}, fmt.Errorf("create saved view: %w", ErrForbidden)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return SavedView{}, err
	}
	state, err := normalizeFilterState(in.FilterState)
	if err != nil {
		return SavedView{}, err
	}

	v, err := s.store.CreateSavedView(ctx, SavedView{
		UserID:      req.UserID,
		Name:        in.Name,
		EntityType:  EntityType(in.EntityType),
		FilterState: state,
		IsShared:    in.IsShared,
	})
	if err != nil {
		return SavedView{}, fmt.Errorf("create saved view: %w", err)
	}

	s.LogAudit(ctx, AuditParams{
		Action:     ActionSavedViewCreate,
		EntityType: v.EntityType,
		UserID:     req.UserID,
		Reason:     v.Name,
	})
	return v, nil
}

// ListSavedViews returns views visible to the requester, optionally for one
// entity type.
func (s *Service) ListSavedViews(ctx context.Context, req Requester, entityType string) ([]SavedView, error) {
	var et EntityType
	if entityType != "" {
		var err error
		if et, err = ParseEntityType(entityType); err != nil {
			return nil, err
		}
	}
	views, err := s.store.ListSavedViews(ctx, et, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("list saved views: %w", err)
	}
	return views, nil
}

// GetSavedView returns a view the requester can see.
func (s *Service) GetSavedView(ctx context.Context, req Requester, id int64) (SavedView, error) {
	v, err := s.store.GetSavedView(ctx, id)
	if err != nil {
		return SavedView{}, err
	}
	if !v.VisibleTo(req.UserID) && !req.IsAdmin {
		return SavedView{}, fmt.Errorf("saved view %d: %w", id, ErrNotFound)
	}
	return v, nil
}

// ApplySavedView returns the view's filter state and its query-string form.
func (s *Service) ApplySavedView(ctx context.Context, req Requester, id int64) (AppliedView, error) {
	v, err := s.GetSavedView(ctx, req, id)
	if err != nil {
		return AppliedView{}, err
	}
	q, err := FilterStateToQuery(v.FilterState)
	if err != nil {
		return AppliedView{}, err
	}
	return AppliedView{View: v, FilterState: v.FilterState, Query: q.Encode()}, nil
}

// UpdateSavedView changes a view. Only the owner or an admin may.
func (s *Service) UpdateSavedView(ctx context.Context, req Requester, id int64, in SavedViewUpdate) (SavedView, error) {
	if err := validateStruct(in); err != nil {
		return SavedView{}, err
	}

	var out SavedView
	err := s.store.InTx(ctx, func(tx Store) error {
		v, err := s.mutableView(ctx, tx, req, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return &ValidationError{Message: "name is required", Fields: []string{"name"}}
			}
			v.Name = name
		}
		if in.FilterState != nil {
			state, err := normalizeFilterState(in.FilterState)
			if err != nil {
				return err
			}
			v.FilterState = state
		}
		if in.IsShared != nil {
			v.IsShared = *in.IsShared
		}

		out, err = tx.UpdateSavedView(ctx, v)
		return err
	})
	if err != nil {
		return SavedView{}, err
	}

	s.LogAudit(ctx, AuditParams{
		Action:     ActionSavedViewUpdate,
		EntityType: out.EntityType,
		UserID:     req.UserID,
		Reason:     out.Name,
	})
	return out, nil
}

// DeleteSavedView removes a view. Only the owner or an admin may.
func (s *Service) DeleteSavedView(ctx context.Context, req Requester, id int64) error {
	var deleted SavedView
	err := s.store.InTx(ctx, func(tx Store) error {
		v, err := s.mutableView(ctx, tx, req, id)
		if err != nil {
			return err
		}
		deleted = v
		return tx.DeleteSavedView(ctx, id)
	})
	if err != nil {
		return err
	}

	s.LogAudit(ctx, AuditParams{
		Action:     ActionSavedViewDelete,
		EntityType: deleted.EntityType,
		UserID:     req.UserID,
		Reason:     deleted.Name,
	})
	return nil
}

// mutableView loads a view and checks the requester may change it.
// A view the requester cannot even see is not found; a visible view owned
// by someone else is forbidden.
func (s *Service) mutableView(ctx context.Context, st Store, req Requester, id int64) (SavedView, error) {
	v, err := st.GetSavedView(ctx, id)
	if err != nil {
		return SavedView{}, err
	}
	if req.CanMutate(v) {
		return v, nil
	}
	if !v.VisibleTo(req.UserID) {
		return SavedView{}, fmt.Errorf("saved view %d: %w", id, ErrNotFound)
	}
	return SavedView{}, fmt.Errorf("saved view %d: %w", id, ErrForbidden)
}

// FilterStateToQuery renders a filter-state object as URL query values.
//
// Strings are used verbatim, bools render as true/false, numbers in their
// shortest form, arrays are comma-joined and nested objects JSON-encoded.
// Null and empty values are dropped.
func FilterStateToQuery(raw json.RawMessage) (url.Values, error) {
	q := url.Values{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return q, nil
	}

	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, &ValidationError{Message: "filter_state must be a JSON object", Fields: []string{"filter_state"}}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if v, ok := queryValue(obj[k]); ok {
			q.Set(k, v)
		}
	}
	return q, nil
}

func queryValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := queryValue(e); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ","), len(parts) > 0
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
