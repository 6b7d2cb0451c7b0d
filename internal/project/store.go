package project

import (
	"database/sql"

	"reposcope/internal/errors"
	"reposcope/internal/storage"
)

// Store persists projects in the instance database.
type Store struct {
	db *storage.DB
}

// NewStore creates a project store backed by db.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying database handle.
func (s *Store) DB() *storage.DB {
	return s.db
}

// Create inserts the project and fills in its ID.
func (s *Store) Create(p *Project) error {
	res, err := s.db.Exec(
		`INSERT INTO projects (name, description, doc_path, theme, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.DocPath, p.Theme, p.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to create project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to read project id", err)
	}
	p.ID = id
	return nil
}

// Get returns the project with the given id.
func (s *Store) Get(id int64) (*Project, error) {
	row := s.db.QueryRow(
		`SELECT id, name, description, doc_path, theme, created_at
		 FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ProjectNotFound, "project not found").
			WithDetails(map[string]int64{"id": id})
	}
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to load project", err)
	}
	return p, nil
}

// List returns all projects ordered by id.
func (s *Store) List() ([]*Project, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, doc_path, theme, created_at
		 FROM projects ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to list projects", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.Wrap(errors.InternalError, "failed to scan project", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to iterate projects", err)
	}
	return out, nil
}

// Update persists changes to an existing project.
func (s *Store) Update(p *Project) error {
	res, err := s.db.Exec(
		`UPDATE projects SET name = ?, description = ?, doc_path = ?, theme = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.DocPath, p.Theme, p.ID,
	)
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to update project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to check update", err)
	}
	if n == 0 {
		return errors.New(errors.ProjectNotFound, "project not found").
			WithDetails(map[string]int64{"id": p.ID})
	}
	return nil
}

// Delete removes the project row. Scope files on disk are the caller's
// concern.
func (s *Store) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to delete project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to check delete", err)
	}
	if n == 0 {
		return errors.New(errors.ProjectNotFound, "project not found").
			WithDetails(map[string]int64{"id": id})
	}
	return nil
}

// Duplicate copies an existing project under a new name and returns the
// copy. Read and insert run in one transaction so a concurrent delete
// cannot produce a copy of a vanished project. The scope file is copied
// separately by the caller.
func (s *Store) Duplicate(id int64, newName string) (*Project, error) {
	var dup *Project
	err := s.db.WithTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			`SELECT id, name, description, doc_path, theme, created_at
			 FROM projects WHERE id = ?`, id)
		src, err := scanProject(row)
		if err == sql.ErrNoRows {
			return errors.New(errors.ProjectNotFound, "project not found").
				WithDetails(map[string]int64{"id": id})
		}
		if err != nil {
			return errors.Wrap(errors.InternalError, "failed to load project", err)
		}

		dup = NewProject(newName, src.Description, src.DocPath, src.Theme)
		res, err := tx.Exec(
			`INSERT INTO projects (name, description, doc_path, theme, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			dup.Name, dup.Description, dup.DocPath, dup.Theme, dup.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(errors.InternalError, "failed to create project", err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(errors.InternalError, "failed to read project id", err)
		}
		dup.ID = newID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dup, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.DocPath, &p.Theme, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
