package agency

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

const (
	procFileGetByID = "agency_file_get_by_id"
	procFileGetAll  = "agency_file_get_all"
	procFileCount   = "agency_file_count"
	procFileInsert  = "agency_file_insert"
	procFileDelete  = "agency_file_delete"
)

// PGFiles stores file metadata. The download URL is derived from BaseURL and
// never persisted.
type PGFiles struct {
	db      *pg.Store
	baseURL string
}

var _ FileRepository = (*PGFiles)(nil)

func NewPGFiles(db *pg.Store, baseURL string) *PGFiles {
	return &PGFiles{db: db, baseURL: baseURL}
}

// FileURL joins base, agency id and the escaped file name.
func FileURL(base string, agencyID int64, fileName string) string {
	return strings.TrimRight(base, "/") + "/" + strconv.FormatInt(agencyID, 10) + "/" + url.PathEscape(fileName)
}

func (r *PGFiles) GetByID(ctx context.Context, id int64) (File, error) {
	var f File
	if err := r.db.Get(ctx, &f, procFileGetByID, id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	f.URL = FileURL(r.baseURL, f.AgencyID, f.FileName)
	return f, nil
}

func (r *PGFiles) GetAll(ctx context.Context, q FileFilter) (paging.Page[File], error) {
	q.Query = q.Query.Normalize()
	files := []File{}
	if err := r.db.Select(ctx, &files, procFileGetAll, q.Take, q.Skip, q.Name, q.AgencyID, q.Alls); err != nil {
		return paging.Page[File]{}, err
	}
	total, err := r.db.Scalar(ctx, procFileCount, q.Name, q.AgencyID)
	if err != nil {
		return paging.Page[File]{}, err
	}
	for i := range files {
		files[i].URL = FileURL(r.baseURL, files[i].AgencyID, files[i].FileName)
	}
	return paging.Page[File]{Data: files, Count: total}, nil
}

func (r *PGFiles) Insert(ctx context.Context, f File) (int64, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.FileName = strings.TrimSpace(f.FileName)
	if err := validate.Struct(f); err != nil {
		return 0, errors.Join(ErrInvalidInput, err)
	}
	return r.db.Scalar(ctx, procFileInsert, f.AgencyID, f.Name, f.Description, f.FileName, f.ContentType, f.SizeBytes, f.UploadedBy)
}

func (r *PGFiles) Delete(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procFileDelete, id)
}
