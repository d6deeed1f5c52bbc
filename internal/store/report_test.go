package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"mserapports/internal/blob"
	"mserapports/pkg/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBlobStore keeps blobs in a map so tests can assert what Save wrote and
// what releaseBlobs removed.
type memBlobStore struct {
	blobs   map[string][]byte
	failPut bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: map[string][]byte{}}
}

func (s *memBlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if s.failPut {
		return "", errors.New("blob backend unavailable")
	}
	key := blob.ContentKey(data)
	s.blobs[key] = data
	return key, nil
}

func (s *memBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (s *memBlobStore) Delete(ctx context.Context, key string) error {
	delete(s.blobs, key)
	return nil
}

func newRepoWithMock(t *testing.T) (*ReportRepository, sqlmock.Sqlmock, *memBlobStore, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	blobs := newMemBlobStore()
	return NewReportRepository(db, blobs), mock, blobs, db
}

func validDraft() *types.ReportDraft {
	return &types.ReportDraft{
		ReportNum:  "MSE-2024-0042",
		ReportDate: "2024-01-10",
		Address:    "3 Rue Exemple",
		Mesures:    []string{"Temp: 45C"},
	}
}

func TestSaveInsertsReportAndPhotosInOneTransaction(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	photoData := make([]byte, 100)
	photo := types.PhotoUpload{Data: photoData, Name: "a.jpg", Type: "image/jpeg", Size: 100}
	key := blob.ContentKey(photoData)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reports .* RETURNING id`).
		WithArgs(
			"MSE-2024-0042",
			time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			"3 Rue Exemple",
			nil, nil, nil,
			nil, nil, nil,
			nil, nil, nil, nil,
			nil, nil,
			[]byte(`["Temp: 45C"]`), []byte(`[]`), []byte(`[]`),
			nil,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO report_photos`).
		WithArgs(int64(7), key, "a.jpg", "image/jpeg", int64(100), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reportID, err := repo.Save(context.Background(), validDraft(), []types.PhotoUpload{photo})
	require.NoError(t, err)
	assert.Equal(t, int64(7), reportID)
	assert.Contains(t, blobs.blobs, key)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDefaultsMissingPhotoType(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	photoData := []byte("untyped upload")
	photo := types.PhotoUpload{Data: photoData, Name: "sans-type.jpg", Description: "vue chaudière"}
	key := blob.ContentKey(photoData)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reports .* RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO report_photos`).
		WithArgs(int64(7), key, "sans-type.jpg", "image/jpeg", int64(len(photoData)), "vue chaudière").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := repo.Save(context.Background(), validDraft(), []types.PhotoUpload{photo})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRejectsMissingDateAndAddressWithoutWriting(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.Save(context.Background(), &types.ReportDraft{}, nil)

	var invalid *types.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Violations, "La date est obligatoire")
	assert.Contains(t, invalid.Violations, "L'adresse est obligatoire")

	assert.Empty(t, blobs.blobs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRejectsOversizedPhotoBeforeAnyWrite(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	photo := types.PhotoUpload{
		Data: []byte("x"),
		Name: "huge.jpg",
		Size: types.MaxPhotoSize + 1,
	}

	_, err := repo.Save(context.Background(), validDraft(), []types.PhotoUpload{photo})

	var invalid *types.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Violations, "Photo trop volumineuse : huge.jpg (max 5MB)")

	assert.Empty(t, blobs.blobs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCollectsEveryViolation(t *testing.T) {
	repo, _, _, db := newRepoWithMock(t)
	defer db.Close()

	draft := &types.ReportDraft{
		EmailDestinataire: "not-an-email",
		Urgence:           "urgent",
	}
	photo := types.PhotoUpload{}

	_, err := repo.Save(context.Background(), draft, []types.PhotoUpload{photo})

	var invalid *types.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.Violations, 6)
}

func TestSaveRollsBackOnPhotoInsertFailure(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	photoData := []byte("payload")
	photo := types.PhotoUpload{Data: photoData, Name: "a.jpg", Type: "image/jpeg"}
	key := blob.ContentKey(photoData)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reports .* RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(`INSERT INTO report_photos`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	// Rolled back, so the blob is unreferenced and gets released.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM report_photos`).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	_, err := repo.Save(context.Background(), validDraft(), []types.PhotoUpload{photo})

	var persistence *types.PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.NotContains(t, blobs.blobs, key)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFailsWhenBlobBackendIsDown(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()
	blobs.failPut = true

	photo := types.PhotoUpload{Data: []byte("payload"), Name: "a.jpg"}

	_, err := repo.Save(context.Background(), validDraft(), []types.PhotoUpload{photo})

	var persistence *types.PersistenceError
	require.ErrorAs(t, err, &persistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func reportRows() *sqlmock.Rows {
	return sqlmock.NewRows(reportColumns)
}

func addReportRow(rows *sqlmock.Rows, id int64, mesures string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "MSE-2024-0042", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "3 Rue Exemple",
		nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil,
		[]byte(mesures), []byte(`[]`), []byte(`[]`),
		nil, false, nil,
		now, now,
	)
}

func TestReportByIDRoundTripsListsAndPhotos(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	photoData := make([]byte, 100)
	key, err := blobs.Put(context.Background(), photoData, "image/jpeg")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM reports WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(addReportRow(reportRows(), 7, `["Temp: 45C"]`))
	mock.ExpectQuery(`SELECT .* FROM report_photos WHERE report_id = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(photoColumns).
			AddRow(int64(11), int64(7), key, "a.jpg", "image/jpeg", int64(100), nil, time.Now()))

	report, err := repo.ReportByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), report.ID)
	assert.Equal(t, "3 Rue Exemple", report.Address)
	assert.Equal(t, types.StringList{"Temp: 45C"}, report.Mesures)
	assert.Equal(t, types.StringList{}, report.Controles)

	require.Len(t, report.Photos, 1)
	assert.Equal(t, "a.jpg", report.Photos[0].PhotoName)
	assert.Equal(t, photoData, report.Photos[0].Data)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportByIDReturnsNotFoundSentinel(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM reports WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(reportRows())

	_, err := repo.ReportByID(context.Background(), 99)
	assert.ErrorIs(t, err, types.ErrReportNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportByIDSurfacesCorruptListColumn(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM reports WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(addReportRow(reportRows(), 7, `{not json`))

	_, err := repo.ReportByID(context.Background(), 7)

	var corrupt *types.CorruptDataError
	assert.ErrorAs(t, err, &corrupt)
}

func TestReportsPagesByCreationTimeDescending(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	firstPage := sqlmock.NewRows(append(append([]string{}, reportColumns...), "photo_count"))
	now := time.Now()
	for _, id := range []int64{5, 4} {
		firstPage.AddRow(
			id, fmt.Sprintf("MSE-%d", id), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "3 Rue Exemple",
			nil, nil, nil,
			nil, nil, nil,
			nil, nil, nil, nil,
			nil, nil,
			[]byte(`[]`), []byte(`[]`), []byte(`[]`),
			nil, false, nil,
			now, now,
			int64(1),
		)
	}

	mock.ExpectQuery(`SELECT .* FROM reports r LEFT JOIN report_photos p ON r\.id = p\.report_id GROUP BY r\.id ORDER BY r\.created_at DESC LIMIT 2 OFFSET 0`).
		WillReturnRows(firstPage)

	summaries, err := repo.Reports(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, int64(5), summaries[0].ID)
	assert.Equal(t, int64(4), summaries[1].ID)
	assert.Equal(t, int64(1), summaries[0].PhotoCount)

	secondPage := sqlmock.NewRows(append(append([]string{}, reportColumns...), "photo_count"))
	for _, id := range []int64{3, 2} {
		secondPage.AddRow(
			id, fmt.Sprintf("MSE-%d", id), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "3 Rue Exemple",
			nil, nil, nil,
			nil, nil, nil,
			nil, nil, nil, nil,
			nil, nil,
			[]byte(`[]`), []byte(`[]`), []byte(`[]`),
			nil, false, nil,
			now, now,
			int64(0),
		)
	}

	mock.ExpectQuery(`SELECT .* LIMIT 2 OFFSET 2`).
		WillReturnRows(secondPage)

	next, err := repo.Reports(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, int64(3), next[0].ID)
	assert.Equal(t, int64(2), next[1].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEmailSentIsIdempotent(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE reports SET email_sent = \$1, email_sent_at = \$2, updated_at = \$3 WHERE id = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE reports SET email_sent = \$1, email_sent_at = \$2, updated_at = \$3 WHERE id = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.MarkEmailSent(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = repo.MarkEmailSent(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, updated)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEmailSentReportsMissingRow(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE reports SET email_sent = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkEmailSent(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestDeletePhotoRemovesRowAndOrphanedBlob(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	key, err := blobs.Put(context.Background(), []byte("payload"), "image/jpeg")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT storage_key FROM report_photos WHERE id = \$1`).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow(key))
	mock.ExpectExec(`DELETE FROM report_photos WHERE id = \$1`).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM report_photos WHERE storage_key = \$1`).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	deleted, err := repo.DeletePhoto(context.Background(), 11)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, blobs.blobs, key)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePhotoKeepsSharedBlob(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	key, err := blobs.Put(context.Background(), []byte("payload"), "image/jpeg")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT storage_key FROM report_photos WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow(key))
	mock.ExpectExec(`DELETE FROM report_photos WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM report_photos WHERE storage_key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	deleted, err := repo.DeletePhoto(context.Background(), 11)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Contains(t, blobs.blobs, key)
}

func TestDeletePhotoReturnsFalseForUnknownID(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT storage_key FROM report_photos WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}))

	deleted, err := repo.DeletePhoto(context.Background(), 404)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReportReleasesItsPhotoBlobs(t *testing.T) {
	repo, mock, blobs, db := newRepoWithMock(t)
	defer db.Close()

	key, err := blobs.Put(context.Background(), []byte("payload"), "image/jpeg")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT storage_key FROM report_photos WHERE report_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow(key))
	mock.ExpectExec(`DELETE FROM reports WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM report_photos WHERE storage_key = \$1`).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	deleted, err := repo.DeleteReport(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, blobs.blobs, key)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReportReturnsFalseForUnknownID(t *testing.T) {
	repo, mock, _, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT storage_key FROM report_photos WHERE report_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}))
	mock.ExpectExec(`DELETE FROM reports WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteReport(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, deleted)
}
