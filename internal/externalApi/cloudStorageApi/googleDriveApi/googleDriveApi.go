package googleDriveApi

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/criptofacil/criptofacil/config"
	"github.com/criptofacil/criptofacil/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type GoogleDriveApi struct {
	srv *drive.Service
	cfg *config.Config
}

func New(ctx context.Context, cfg *config.Config) *GoogleDriveApi {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		slog.Error("failed on drive.NewService")
		panic(err)
	}
	return &GoogleDriveApi{srv: srv, cfg: cfg}
}

// UploadFile stores a backup archive on the service account's drive. Files
// stay private, the returned id is only used for bookkeeping and logs.
func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (fileID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	mimeType := mime.TypeByExtension(filepath.Ext(filename))

	fileMeta := &drive.File{
		Name:     filename,
		MimeType: mimeType,
	}

	uploadedFile, err := a.srv.Files.
		Create(fileMeta).
		Media(reader).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading file to google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploadedFile.Id))

	return uploadedFile.Id, nil
}

// DeleteOldFiles removes backups older than the configured TTL so the
// service account's quota does not fill up.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))
	r, err := a.srv.Files.List().Fields("files(id, createdTime)").Do()
	if err != nil {
		slog.Error("failed on getting files", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	totalFiles := len(r.Files)
	deletedFiles := 0
	for _, f := range r.Files {
		createdTime, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			slog.Error(
				"failed parse time",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("err", err.Error()),
				slog.String("fileID", f.Id),
				slog.String("createdTime", f.CreatedTime),
			)
			continue
		}

		if createdTime.Before(time.Now().Add(-1 * a.cfg.GoogleDrive.FileTTL)) {
			err = a.srv.Files.Delete(f.Id).Do()
			if err != nil {
				slog.Error(
					"failed delete file",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.String("err", err.Error()),
					slog.String("fileID", f.Id),
				)
				continue
			}
			deletedFiles++
		}
	}

	err = a.srv.Files.EmptyTrash().Do()
	if err != nil {
		slog.Error("failed empty trash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("delete old files done", slog.Int("deletedFiles", deletedFiles), slog.Int("remaining files", totalFiles-deletedFiles))

	return nil
}
