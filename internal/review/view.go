package review

import (
	"context"

	"insreview/internal"
	"insreview/internal/api"
	"insreview/internal/fileinfo"
)

// View is the screen the controller drives. Every method is a visibility
// toggle or a re-render of one panel.
type View interface {
	SetProcessing(on bool)
	ShowFile(info fileinfo.Info)
	ClearFile()
	ShowResults(res Results)
	HideResults()
	ShowError(msg string)
	HideError()
	ShowHistory(list HistoryList)
	ShowStats(stats internal.Stats)
	ShowCompanies(companies []string)
	ShowDownload(path string)
}

type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

type Downloader interface {
	Save(name string, blob []byte) (string, error)
}

// Backend is the subset of the HTTP API the controller uses.
type Backend interface {
	Upload(ctx context.Context, file api.Upload, company string) (internal.UploadResult, error)
	ListRecords(ctx context.Context, limit int, needsReview bool) ([]internal.HistoryEntry, error)
	GetRecord(ctx context.Context, id internal.RecordID) (internal.Record, error)
	DeleteRecord(ctx context.Context, id internal.RecordID) error
	Stats(ctx context.Context) (internal.Stats, error)
	Companies(ctx context.Context) ([]string, error)
	ExportData(ctx context.Context, format internal.ExportFormat, data internal.Record) ([]byte, error)
	ExportRecords(ctx context.Context, format internal.ExportFormat, ids []internal.RecordID) ([]byte, error)
}
