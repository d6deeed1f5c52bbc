package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mserapports/internal/blob"
	"mserapports/internal/utils"
	"mserapports/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
)

const (
	reportTableName = "reports"
	photoTableName  = "report_photos"
)

var (
	reportColumns = utils.StructTagValues(types.Report{})
	photoColumns  = utils.StructTagValues(types.Photo{})
)

// ReportRepository owns the report aggregate: the report row, its JSON list
// columns and the attached photo rows. Photo bytes live in the blob store;
// rows only carry the storage key.
type ReportRepository struct {
	db    *sql.DB
	blobs blob.Store
}

func NewReportRepository(db *sql.DB, blobs blob.Store) *ReportRepository {
	return &ReportRepository{db: db, blobs: blobs}
}

// Save validates the draft and every photo before anything is written, then
// persists the report row and its photo rows in one transaction. On any
// failure past validation the transaction is rolled back and freshly written
// blobs are released; readers never observe a partial report.
func (r *ReportRepository) Save(ctx context.Context, draft *types.ReportDraft, photos []types.PhotoUpload) (int64, error) {

	if violations := draft.Validate(photos); len(violations) > 0 {
		return 0, &types.ValidationError{Violations: violations}
	}

	reportDate, err := draft.Date()
	if err != nil {
		return 0, &types.ValidationError{Violations: []string{"Date invalide : " + draft.ReportDate}}
	}

	reportNum := strings.TrimSpace(draft.ReportNum)
	if reportNum == "" {
		reportNum = fmt.Sprintf("MSE-%s-%s", reportDate.Format("20060102"), utils.NanoIDSize(6))
	}

	keys := make([]string, len(photos))
	for i, photo := range photos {
		key, err := r.blobs.Put(ctx, photo.Data, photo.Type)
		if err != nil {
			r.releaseBlobs(ctx, keys[:i])
			return 0, &types.PersistenceError{Op: "store photo blob", Err: err}
		}
		keys[i] = key
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.releaseBlobs(ctx, keys)
		return 0, &types.PersistenceError{Op: "begin transaction", Err: err}
	}

	reportID, err := r.insertReport(ctx, tx, draft, reportNum, reportDate)
	if err == nil {
		err = r.insertPhotos(ctx, tx, reportID, photos, keys)
	}

	if err != nil {
		tx.Rollback()
		r.releaseBlobs(ctx, keys)
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		r.releaseBlobs(ctx, keys)
		return 0, &types.PersistenceError{Op: "commit report", Err: err}
	}

	return reportID, nil
}

func (r *ReportRepository) insertReport(ctx context.Context, tx *sql.Tx, draft *types.ReportDraft, reportNum string, reportDate time.Time) (int64, error) {

	query, args, err := psql().
		Insert(reportTableName).
		Columns(
			"report_num", "report_date", "address",
			"c1_marque", "c1_modele", "c1_serie",
			"c2_marque", "c2_modele", "c2_serie",
			"etat_general", "anomalies", "travaux_realises", "recommandations",
			"urgence", "intervenant",
			"mesures", "controles", "releves",
			"email_destinataire",
		).
		Values(
			reportNum, reportDate, draft.Address,
			nullable(draft.C1Marque), nullable(draft.C1Modele), nullable(draft.C1Serie),
			nullable(draft.C2Marque), nullable(draft.C2Modele), nullable(draft.C2Serie),
			nullable(draft.EtatGeneral), nullable(draft.Anomalies),
			nullable(draft.TravauxRealises), nullable(draft.Recommandations),
			nullable(draft.Urgence), nullable(draft.Intervenant),
			types.StringList(draft.Mesures), types.StringList(draft.Controles), types.StringList(draft.Releves),
			nullable(draft.EmailDestinataire),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build report insert: %w", err)
	}

	var reportID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&reportID); err != nil {
		return 0, &types.PersistenceError{Op: "insert report", Err: err}
	}

	return reportID, nil
}

func (r *ReportRepository) insertPhotos(ctx context.Context, tx *sql.Tx, reportID int64, photos []types.PhotoUpload, keys []string) error {

	for i, photo := range photos {
		// Browsers may omit the MIME type; fall back so the row never
		// carries a NULL type.
		photoType := photo.Type
		if photoType == "" {
			photoType = "image/jpeg"
		}

		query, args, err := psql().
			Insert(photoTableName).
			Columns("report_id", "storage_key", "photo_name", "photo_type", "photo_size", "description").
			Values(reportID, keys[i], photo.Name, photoType, photo.DeclaredSize(), nullable(photo.Description)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build photo insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return &types.PersistenceError{Op: fmt.Sprintf("insert photo %s", photo.Name), Err: err}
		}
	}

	return nil
}

// ReportByID loads the full aggregate: scalar fields, decoded list fields and
// the ordered photo list. Returns types.ErrReportNotFound when no row matches.
func (r *ReportRepository) ReportByID(ctx context.Context, reportID int64) (*types.Report, error) {

	query, args, err := psql().
		Select(reportColumns...).
		From(reportTableName).
		Where(sq.Eq{"id": reportID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build report query: %w", err)
	}

	var report types.Report
	err = sqlscan.Get(ctx, r.db, &report, query, args...)
	if err != nil {
		if sqlscan.NotFound(err) {
			return nil, types.ErrReportNotFound
		}
		var corrupt *types.CorruptDataError
		if errors.As(err, &corrupt) {
			return nil, corrupt
		}
		return nil, fmt.Errorf("fetch report %d: %w", reportID, err)
	}

	photos, err := r.Photos(ctx, reportID)
	if err != nil {
		return nil, err
	}
	report.Photos = photos

	return &report, nil
}

// Reports returns a page of report summaries ordered by creation time
// descending, each annotated with its photo count. Limit and offset are the
// caller's responsibility; no clamping happens here.
func (r *ReportRepository) Reports(ctx context.Context, limit, offset uint64) ([]*types.ReportSummary, error) {

	columns := append(prefixColumns("r", reportColumns), "COUNT(p.id) AS photo_count")

	query, args, err := psql().
		Select(columns...).
		From(reportTableName + " r").
		LeftJoin(photoTableName + " p ON r.id = p.report_id").
		GroupBy("r.id").
		OrderBy("r.created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reports query: %w", err)
	}

	summaries := make([]*types.ReportSummary, 0)
	if err := sqlscan.Select(ctx, r.db, &summaries, query, args...); err != nil {
		var corrupt *types.CorruptDataError
		if errors.As(err, &corrupt) {
			return nil, corrupt
		}
		return nil, fmt.Errorf("fetch reports: %w", err)
	}

	return summaries, nil
}

// Photos lists a report's photos, creation time ascending, with their bytes
// resolved from the blob store.
func (r *ReportRepository) Photos(ctx context.Context, reportID int64) ([]*types.Photo, error) {

	query, args, err := psql().
		Select(photoColumns...).
		From(photoTableName).
		Where(sq.Eq{"report_id": reportID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build photos query: %w", err)
	}

	photos := make([]*types.Photo, 0)
	if err := sqlscan.Select(ctx, r.db, &photos, query, args...); err != nil {
		return nil, fmt.Errorf("fetch photos for report %d: %w", reportID, err)
	}

	for _, photo := range photos {
		data, err := r.blobs.Get(ctx, photo.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("resolve photo %d bytes: %w", photo.ID, err)
		}
		photo.Data = data
	}

	return photos, nil
}

// DeletePhoto removes exactly one photo row and reports whether a row was
// actually deleted. The underlying blob is released once nothing references
// it anymore.
func (r *ReportRepository) DeletePhoto(ctx context.Context, photoID int64) (bool, error) {

	query, args, err := psql().
		Select("storage_key").
		From(photoTableName).
		Where(sq.Eq{"id": photoID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build photo key query: %w", err)
	}

	var storageKey string
	if err := sqlscan.Get(ctx, r.db, &storageKey, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("fetch photo %d: %w", photoID, err)
	}

	query, args, err = psql().
		Delete(photoTableName).
		Where(sq.Eq{"id": photoID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build photo delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete photo %d: %w", photoID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("photo delete result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	r.releaseBlobs(ctx, []string{storageKey})

	return true, nil
}

// MarkEmailSent flips the sent flag and stamps the send time. Calling it
// again simply re-stamps; that is the documented contract.
func (r *ReportRepository) MarkEmailSent(ctx context.Context, reportID int64) (bool, error) {

	now := time.Now()

	query, args, err := psql().
		Update(reportTableName).
		Set("email_sent", true).
		Set("email_sent_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": reportID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build mark-sent update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark report %d sent: %w", reportID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark-sent result: %w", err)
	}

	return affected > 0, nil
}

// DeleteReport removes a report; its photo rows go with it via the foreign
// key cascade. Orphaned blobs are released afterwards, best effort.
func (r *ReportRepository) DeleteReport(ctx context.Context, reportID int64) (bool, error) {

	query, args, err := psql().
		Select("storage_key").
		From(photoTableName).
		Where(sq.Eq{"report_id": reportID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build photo keys query: %w", err)
	}

	keys := make([]string, 0)
	if err := sqlscan.Select(ctx, r.db, &keys, query, args...); err != nil {
		return false, fmt.Errorf("fetch photo keys for report %d: %w", reportID, err)
	}

	query, args, err = psql().
		Delete(reportTableName).
		Where(sq.Eq{"id": reportID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build report delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete report %d: %w", reportID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("report delete result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	r.releaseBlobs(ctx, keys)

	return true, nil
}

// releaseBlobs deletes blobs that no photo row references anymore. Blobs are
// content addressed, so a key may be shared between photos; a still-referenced
// key is left alone. Failures here never fail the surrounding operation.
func (r *ReportRepository) releaseBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}

		query, args, err := psql().
			Select("COUNT(*)").
			From(photoTableName).
			Where(sq.Eq{"storage_key": key}).
			ToSql()
		if err != nil {
			continue
		}

		var refs int64
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&refs); err != nil || refs > 0 {
			continue
		}

		r.blobs.Delete(ctx, key)
	}
}
