package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// ---- natural keys ----

func (q *queries) LockNaturalKey(ctx context.Context, key string) error {
	if _, err := q.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock %q: %w", key, err)
	}
	return nil
}

func (q *queries) exists(ctx context.Context, sql string, args ...any) (bool, error) {
	var ok bool
	if err := q.q.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, mapErr(err, "exists check")
	}
	return ok, nil
}

func (q *queries) PersonExists(ctx context.Context, firstName, lastName string) (bool, error) {
	return q.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM people
			WHERE lower(first_name) = lower(btrim($1)) AND lower(last_name) = lower(btrim($2))
		)`, firstName, lastName)
}

func (q *queries) CompanyExists(ctx context.Context, name string) (bool, error) {
	return q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE lower(name) = lower(btrim($1)))`, name)
}

func (q *queries) SchoolExists(ctx context.Context, name string) (bool, error) {
	return q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM schools WHERE lower(name) = lower(btrim($1)))`, name)
}

// ---- inserts ----

func (q *queries) InsertPerson(ctx context.Context, p core.Person) (int64, error) {
	var id int64
	err := q.q.QueryRow(ctx, `
		INSERT INTO people (first_name, middle_name, last_name, email, phone, address, city, state, zip,
			is_donor, is_fc_certified, is_board_member, children)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		p.FirstName, p.MiddleName, p.LastName, p.Email, p.Phone, p.Address, p.City, p.State, p.Zip,
		p.IsDonor, p.IsFCCertified, p.IsBoardMember, p.Children,
	).Scan(&id)
	return id, mapErr(err, "insert person")
}

func (q *queries) InsertCompany(ctx context.Context, c core.Company) (int64, error) {
	var id int64
	err := q.q.QueryRow(ctx, `
		INSERT INTO companies (name, email, phone, address, city, state, zip, is_donor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.Zip, c.IsDonor,
	).Scan(&id)
	return id, mapErr(err, "insert company")
}

func (q *queries) InsertSchool(ctx context.Context, s core.School) (int64, error) {
	var id int64
	err := q.q.QueryRow(ctx, `
		INSERT INTO schools (name, email, phone, address, city, state, zip)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		s.Name, s.Email, s.Phone, s.Address, s.City, s.State, s.Zip,
	).Scan(&id)
	return id, mapErr(err, "insert school")
}

// GetOrCreateCompany takes the company's natural-key lock, so it serializes
// with company imports of the same name.
func (q *queries) GetOrCreateCompany(ctx context.Context, name string) (int64, error) {
	if err := q.LockNaturalKey(ctx, core.NaturalKey(core.EntityCompanies, name)); err != nil {
		return 0, err
	}
	var id int64
	err := q.q.QueryRow(ctx, `
		WITH existing AS (
			SELECT id FROM companies WHERE lower(name) = lower(btrim($1)) ORDER BY id LIMIT 1
		), created AS (
			INSERT INTO companies (name)
			SELECT btrim($1) WHERE NOT EXISTS (SELECT 1 FROM existing)
			RETURNING id
		)
		SELECT id FROM existing
		UNION ALL
		SELECT id FROM created`, name,
	).Scan(&id)
	return id, mapErr(err, fmt.Sprintf("company %q", name))
}

// GetOrCreatePersonType relies on the unique name constraint.
func (q *queries) GetOrCreatePersonType(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.q.QueryRow(ctx, `
		INSERT INTO person_types (name, sort_order)
		VALUES ($1, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM person_types))
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name,
	).Scan(&id)
	return id, mapErr(err, fmt.Sprintf("person type %q", name))
}

func (q *queries) LinkPersonCompany(ctx context.Context, personID, companyID int64, primary bool) error {
	if primary {
		if _, err := q.q.Exec(ctx, `UPDATE person_companies SET is_primary = false WHERE person_id = $1`, personID); err != nil {
			return mapErr(err, "clear primary company")
		}
	}
	_, err := q.q.Exec(ctx, `
		INSERT INTO person_companies (person_id, company_id, is_primary)
		VALUES ($1, $2, $3)
		ON CONFLICT (person_id, company_id) DO UPDATE SET is_primary = EXCLUDED.is_primary`,
		personID, companyID, primary)
	return mapErr(err, "link company")
}

func (q *queries) LinkPersonSchool(ctx context.Context, personID, schoolID int64, primary bool) error {
	if primary {
		if _, err := q.q.Exec(ctx, `UPDATE person_schools SET is_primary = false WHERE person_id = $1`, personID); err != nil {
			return mapErr(err, "clear primary school")
		}
	}
	_, err := q.q.Exec(ctx, `
		INSERT INTO person_schools (person_id, school_id, is_primary)
		VALUES ($1, $2, $3)
		ON CONFLICT (person_id, school_id) DO UPDATE SET is_primary = EXCLUDED.is_primary`,
		personID, schoolID, primary)
	return mapErr(err, "link school")
}

func (q *queries) AssignPersonType(ctx context.Context, personID, typeID int64) error {
	_, err := q.q.Exec(ctx, `
		INSERT INTO person_type_assignments (person_id, type_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, personID, typeID)
	return mapErr(err, "assign person type")
}

// ---- reads ----

const personColumns = `
	p.id, p.first_name, p.middle_name, p.last_name, p.email, p.phone, p.address, p.city, p.state, p.zip,
	p.is_donor, p.is_fc_certified, p.is_board_member, p.children, p.created_at,
	COALESCE((
		SELECT c.name FROM person_companies pc JOIN companies c ON c.id = pc.company_id
		WHERE pc.person_id = p.id AND pc.is_primary ORDER BY c.id LIMIT 1
	), ''),
	ARRAY(
		SELECT t.name FROM person_type_assignments a JOIN person_types t ON t.id = a.type_id
		WHERE a.person_id = p.id ORDER BY t.name
	)`

func scanPerson(row pgx.CollectableRow) (core.Person, error) {
	var p core.Person
	err := row.Scan(&p.ID, &p.FirstName, &p.MiddleName, &p.LastName, &p.Email, &p.Phone, &p.Address,
		&p.City, &p.State, &p.Zip, &p.IsDonor, &p.IsFCCertified, &p.IsBoardMember, &p.Children,
		&p.CreatedAt, &p.Company, &p.Types)
	return p, err
}

const companyColumns = `c.id, c.name, c.email, c.phone, c.address, c.city, c.state, c.zip, c.is_donor, c.created_at`

func scanCompany(row pgx.CollectableRow) (core.Company, error) {
	var c core.Company
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.Zip, &c.IsDonor, &c.CreatedAt)
	return c, err
}

const schoolColumns = `s.id, s.name, s.email, s.phone, s.address, s.city, s.state, s.zip, s.created_at`

func scanSchool(row pgx.CollectableRow) (core.School, error) {
	var s core.School
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.City, &s.State, &s.Zip, &s.CreatedAt)
	return s, err
}

func peopleWhere(f core.Filters) *whereBuilder {
	wb := newWhereBuilder()
	wb.addSearch(f.Search, "p.first_name", "p.last_name", "p.email")
	wb.addBool("p.is_donor", f.IsDonor)
	wb.addBool("p.is_fc_certified", f.IsFCCertified)
	wb.addBool("p.is_board_member", f.IsBoardMember)
	wb.addExists("SELECT 1 FROM person_type_assignments a WHERE a.person_id = p.id AND a.type_id = %s", f.TypeID)
	wb.addExists("SELECT 1 FROM person_schools ps WHERE ps.person_id = p.id AND ps.school_id = %s", f.SchoolID)
	wb.addExists("SELECT 1 FROM person_companies pc WHERE pc.person_id = p.id AND pc.company_id = %s", f.CompanyID)
	return wb
}

func (q *queries) ListPeople(ctx context.Context, f core.Filters) ([]core.Person, error) {
	where, args := peopleWhere(f).build()
	rows, err := q.q.Query(ctx, `SELECT `+personColumns+` FROM people p`+where+
		` ORDER BY lower(p.last_name), lower(p.first_name), p.id`, args...)
	if err != nil {
		return nil, mapErr(err, "list people")
	}
	people, err := pgx.CollectRows(rows, scanPerson)
	return people, mapErr(err, "list people")
}

func (q *queries) ListCompanies(ctx context.Context, f core.Filters) ([]core.Company, error) {
	wb := newWhereBuilder()
	wb.addSearch(f.Search, "c.name", "c.email")
	wb.addBool("c.is_donor", f.IsDonor)
	where, args := wb.build()

	rows, err := q.q.Query(ctx, `SELECT `+companyColumns+` FROM companies c`+where+` ORDER BY lower(c.name), c.id`, args...)
	if err != nil {
		return nil, mapErr(err, "list companies")
	}
	companies, err := pgx.CollectRows(rows, scanCompany)
	return companies, mapErr(err, "list companies")
}

func (q *queries) ListSchools(ctx context.Context, f core.Filters) ([]core.School, error) {
	wb := newWhereBuilder()
	wb.addSearch(f.Search, "s.name", "s.email")
	where, args := wb.build()

	rows, err := q.q.Query(ctx, `SELECT `+schoolColumns+` FROM schools s`+where+` ORDER BY lower(s.name), s.id`, args...)
	if err != nil {
		return nil, mapErr(err, "list schools")
	}
	schools, err := pgx.CollectRows(rows, scanSchool)
	return schools, mapErr(err, "list schools")
}

func (q *queries) GetPerson(ctx context.Context, id int64) (core.Person, error) {
	rows, err := q.q.Query(ctx, `SELECT `+personColumns+` FROM people p WHERE p.id = $1`, id)
	if err != nil {
		return core.Person{}, mapErr(err, fmt.Sprintf("person %d", id))
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPerson)
	return p, mapErr(err, fmt.Sprintf("person %d", id))
}

func (q *queries) GetCompany(ctx context.Context, id int64) (core.Company, error) {
	rows, err := q.q.Query(ctx, `SELECT `+companyColumns+` FROM companies c WHERE c.id = $1`, id)
	if err != nil {
		return core.Company{}, mapErr(err, fmt.Sprintf("company %d", id))
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCompany)
	return c, mapErr(err, fmt.Sprintf("company %d", id))
}

func (q *queries) GetSchool(ctx context.Context, id int64) (core.School, error) {
	rows, err := q.q.Query(ctx, `SELECT `+schoolColumns+` FROM schools s WHERE s.id = $1`, id)
	if err != nil {
		return core.School{}, mapErr(err, fmt.Sprintf("school %d", id))
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSchool)
	return s, mapErr(err, fmt.Sprintf("school %d", id))
}

// DeleteEntity relies on the schema's cascades: junction rows are removed
// and donation references are set to NULL.
func (q *queries) DeleteEntity(ctx context.Context, et core.EntityType, id int64) error {
	switch et {
	case core.EntityPeople, core.EntityCompanies, core.EntitySchools:
	default:
		return core.Validationf("unknown entity type %q", et)
	}
	tag, err := q.q.Exec(ctx, `DELETE FROM `+quoteIdentifier(string(et))+` WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("delete %s %d", et, id))
	}
	return expectRows(tag, fmt.Sprintf("%s %d", et, id))
}

// ---- person types ----

func (q *queries) ListPersonTypes(ctx context.Context) ([]core.PersonType, error) {
	rows, err := q.q.Query(ctx, `SELECT id, name, sort_order FROM person_types ORDER BY sort_order, name`)
	if err != nil {
		return nil, mapErr(err, "list person types")
	}
	types, err := pgx.CollectRows(rows, pgx.RowToStructByPos[core.PersonType])
	return types, mapErr(err, "list person types")
}

func (q *queries) CreatePersonType(ctx context.Context, name string) (core.PersonType, error) {
	var pt core.PersonType
	err := q.q.QueryRow(ctx, `
		INSERT INTO person_types (name, sort_order)
		VALUES ($1, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM person_types))
		RETURNING id, name, sort_order`, name,
	).Scan(&pt.ID, &pt.Name, &pt.SortOrder)
	return pt, mapErr(err, fmt.Sprintf("person type %q", name))
}
