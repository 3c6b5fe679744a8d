package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DonationInput is the body of a donation create or update request.
// At least one of PersonID and CompanyID is required.
type DonationInput struct {
	PersonID  *int64  `json:"person_id"`
	CompanyID *int64  `json:"company_id"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Notes     string  `json:"notes" validate:"max=2000"`
}

func (in DonationInput) toDonation() (Donation, error) {
	if err := validateStruct(in); err != nil {
		return Donation{}, err
	}
	if in.PersonID == nil && in.CompanyID == nil {
		return Donation{}, &ValidationError{
			Message: "donation must reference a person or a company",
			Fields:  []string{"person_id", "company_id"},
		}
	}
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return Donation{}, &ValidationError{Message: "date must be YYYY-MM-DD", Fields: []string{"date"}}
	}
	return Donation{
		PersonID:  in.PersonID,
		CompanyID: in.CompanyID,
		Amount:    in.Amount,
		Date:      date,
		Notes:     strings.TrimSpace(in.Notes),
	}, nil
}

// CreateDonation records a donation and marks every referenced party as a
// donor, in one transaction.
func (s *Service) CreateDonation(ctx context.Context, req Requester, in DonationInput) (Donation, error) {
	d, err := in.toDonation()
	if err != nil {
		return Donation{}, err
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		if err := checkParties(ctx, tx, d); err != nil {
			return err
		}
		id, err := tx.InsertDonation(ctx, d)
		if err != nil {
			return err
		}
		d.ID = id
		return tx.MarkDonor(ctx, d.PersonID, d.CompanyID)
	})
	if err != nil {
		return Donation{}, fmt.Errorf("create donation: %w", err)
	}

	s.LogAudit(ctx, AuditParams{Action: ActionDonationSave, UserID: req.UserID, RowsAffected: 1, Reason: fmt.Sprintf("donation %d created", d.ID)})
	return d, nil
}

// UpdateDonation replaces a donation's fields and re-marks its parties as
// donors, in one transaction.
func (s *Service) UpdateDonation(ctx context.Context, req Requester, id int64, in DonationInput) (Donation, error) {
	d, err := in.toDonation()
	if err != nil {
		return Donation{}, err
	}
	d.ID = id

	err = s.store.InTx(ctx, func(tx Store) error {
		if err := checkParties(ctx, tx, d); err != nil {
			return err
		}
		if err := tx.UpdateDonation(ctx, d); err != nil {
			return err
		}
		return tx.MarkDonor(ctx, d.PersonID, d.CompanyID)
	})
	if err != nil {
		return Donation{}, fmt.Errorf("update donation %d: %w", id, err)
	}

	s.LogAudit(ctx, AuditParams{Action: ActionDonationSave, UserID: req.UserID, RowsAffected: 1, Reason: fmt.Sprintf("donation %d updated", id)})
	return d, nil
}

// ListDonations returns donations for a person and/or company, newest first.
// With neither set it returns every donation.
func (s *Service) ListDonations(ctx context.Context, personID, companyID *int64) ([]Donation, error) {
	return s.store.ListDonations(ctx, personID, companyID)
}

func checkParties(ctx context.Context, st Store, d Donation) error {
	if d.PersonID != nil {
		if _, err := st.GetPerson(ctx, *d.PersonID); err != nil {
			return err
		}
	}
	if d.CompanyID != nil {
		if _, err := st.GetCompany(ctx, *d.CompanyID); err != nil {
			return err
		}
	}
	return nil
}
