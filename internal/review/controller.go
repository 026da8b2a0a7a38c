// Package review is the upload and review screen: it owns the selection
// state, turns user actions into backend calls and pushes the outcome to a
// View.
//
// Each panel (results, history, stats) has its own request token. When two
// requests for the same panel overlap, the one issued last wins and the
// older response is dropped with ErrStale.
package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"insreview/internal"
	"insreview/internal/api"
	"insreview/internal/download"
	"insreview/internal/fileinfo"
	"insreview/internal/logger"
)

const deletePrompt = "Are you sure you want to delete this record?"

type Options struct {
	PageSize       int
	ExportPrefix   string
	TrackStats     bool
	DefaultCompany string
}

type Controller struct {
	backend   Backend
	view      View
	confirm   Confirmer
	downloads Downloader
	opts      Options

	describeFile func(string) (fileinfo.Info, error)
	readFile     func(string) ([]byte, error)

	st state
}

func NewController(backend Backend, view View, confirm Confirmer, downloads Downloader, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if strings.TrimSpace(opts.ExportPrefix) == "" {
		opts.ExportPrefix = "renters_data"
	}
	c := &Controller{
		backend:      backend,
		view:         view,
		confirm:      confirm,
		downloads:    downloads,
		opts:         opts,
		describeFile: fileinfo.Describe,
		readFile:     os.ReadFile,
	}
	c.st.company = opts.DefaultCompany
	return c
}

// Init loads the first page of history (and stats) the way the page does on
// load.
func (c *Controller) Init(ctx context.Context) {
	c.refresh(ctx)
}

func (c *Controller) SelectedFile() (fileinfo.Info, bool) {
	return c.st.selectedFile()
}

func (c *Controller) Company() string {
	return c.st.selectedCompany()
}

// CurrentRecord returns the id and data of the current record, if any.
func (c *Controller) CurrentRecord() (internal.RecordID, internal.Record, bool) {
	return c.st.current()
}

func (c *Controller) ResultsVisible() bool {
	return c.st.resultsVisible()
}

// SelectCompany sets the optional company sent with the next upload. An
// empty name lets the backend pick.
func (c *Controller) SelectCompany(company string) {
	c.st.setCompany(strings.TrimSpace(company))
}

// SelectFile checks only that path names a file and remembers it.
func (c *Controller) SelectFile(path string) error {
	info, err := c.describeFile(path)
	if err != nil {
		c.view.ShowError(fmt.Sprintf("Cannot select %s: %v", path, err))
		return fmt.Errorf("%w: %v", ErrNoFile, err)
	}
	c.st.setFile(info)
	c.view.ShowFile(info)
	return nil
}

// UploadFile selects path and submits it straight away, as dropping a file
// on the page does.
func (c *Controller) UploadFile(ctx context.Context, path string) error {
	if err := c.SelectFile(path); err != nil {
		return err
	}
	return c.Submit(ctx)
}

func (c *Controller) Submit(ctx context.Context) error {
	file, ok := c.st.selectedFile()
	if !ok {
		c.view.ShowError("No file selected")
		return ErrNoFile
	}
	company := c.st.selectedCompany()

	token := c.st.begin(slotResults)
	c.st.startUpload()
	c.view.SetProcessing(true)
	c.view.HideResults()
	c.st.dropRecord()
	c.view.HideError()

	var res internal.UploadResult
	content, err := c.readFile(file.Path)
	if err != nil {
		err = &api.TransportError{Op: "reading " + file.Name, Err: err}
	} else {
		res, err = c.backend.Upload(ctx, api.Upload{Name: file.Name, Content: content}, company)
	}
	pending := c.st.finishUpload()

	if err == nil {
		if !c.st.commitRecord(token, res.RecordID, res.Data) {
			return c.staleUpload(token, pending)
		}
		c.view.SetProcessing(false)
		c.view.ShowResults(FromUpload(res))
		logger.Get().Infow("upload complete", "record_id", res.RecordID, "file", file.Name)
		c.refresh(ctx)
		return nil
	}

	if !c.st.latest(slotResults, token) {
		return c.staleUpload(token, pending)
	}
	c.view.SetProcessing(false)
	c.view.ShowError(describe(err, "Error uploading file", "Upload failed"))
	logger.Get().Warnw("upload failed", "file", file.Name, "error", err)
	return err
}

// View fetches a stored record, makes it current and renders it like an
// upload result.
func (c *Controller) View(ctx context.Context, id internal.RecordID) error {
	token := c.st.begin(slotResults)

	rec, err := c.backend.GetRecord(ctx, id)
	if err != nil {
		if !c.st.latest(slotResults, token) {
			return c.stale("view", token)
		}
		c.view.ShowError(describe(err, "Error viewing record", "Record not found"))
		return err
	}

	if !c.st.commitRecord(token, id, rec) {
		return c.stale("view", token)
	}
	c.view.HideError()
	c.view.ShowResults(FromRecord(id, rec))
	return nil
}

// Delete asks for confirmation, deletes the record and refreshes the lists.
// Deleting the current record resets the screen.
func (c *Controller) Delete(ctx context.Context, id internal.RecordID) error {
	if !c.confirm.Confirm(deletePrompt) {
		return ErrCancelled
	}

	if err := c.backend.DeleteRecord(ctx, id); err != nil {
		c.view.ShowError(describe(err, "Error deleting record", "Failed to delete record"))
		if api.IsNotFound(err) {
			// someone else removed it; drop the stale row
			c.refresh(ctx)
		}
		return err
	}

	logger.Get().Infow("record deleted", "record_id", id)
	c.refresh(ctx)
	if c.st.isCurrent(id) {
		c.Reset()
	}
	return nil
}

// Export downloads the current record in the given format.
func (c *Controller) Export(ctx context.Context, format internal.ExportFormat) error {
	_, data, ok := c.st.current()
	if !ok || data == nil {
		c.view.ShowError("No data to export")
		return ErrNoData
	}

	blob, err := c.backend.ExportData(ctx, format, data)
	if err != nil {
		c.view.ShowError(describe(err, "Error exporting data", "Export failed"))
		return err
	}
	return c.save(format, blob)
}

// ExportRecords downloads stored records by id.
func (c *Controller) ExportRecords(ctx context.Context, format internal.ExportFormat, ids []internal.RecordID) error {
	if len(ids) == 0 {
		c.view.ShowError("No data to export")
		return ErrNoData
	}

	blob, err := c.backend.ExportRecords(ctx, format, ids)
	if err != nil {
		c.view.ShowError(describe(err, "Error exporting data", "Export failed"))
		return err
	}
	return c.save(format, blob)
}

func (c *Controller) save(format internal.ExportFormat, blob []byte) error {
	path, err := c.downloads.Save(download.FileName(c.opts.ExportPrefix, format), blob)
	if err != nil {
		c.view.ShowError("Error saving download: " + err.Error())
		return err
	}
	c.view.ShowDownload(path)
	return nil
}

// LoadHistory lists the latest records, optionally only those flagged for
// review. The filter sticks for later refreshes.
func (c *Controller) LoadHistory(ctx context.Context, needsReview bool) error {
	c.st.setHistoryFilter(needsReview)
	err := c.loadHistory(ctx, needsReview)
	if err != nil && !errors.Is(err, ErrStale) {
		c.view.ShowError(describe(err, "Error loading history", "Failed to load records"))
	}
	return err
}

func (c *Controller) loadHistory(ctx context.Context, needsReview bool) error {
	token := c.st.begin(slotHistory)
	entries, err := c.backend.ListRecords(ctx, c.opts.PageSize, needsReview)
	if !c.st.latest(slotHistory, token) {
		return c.stale("history", token)
	}
	if err != nil {
		return err
	}
	c.view.ShowHistory(BuildHistory(entries, needsReview))
	return nil
}

func (c *Controller) LoadStats(ctx context.Context) error {
	err := c.loadStats(ctx)
	if err != nil && !errors.Is(err, ErrStale) {
		c.view.ShowError(describe(err, "Error loading stats", "Failed to load stats"))
	}
	return err
}

func (c *Controller) loadStats(ctx context.Context) error {
	token := c.st.begin(slotStats)
	stats, err := c.backend.Stats(ctx)
	if !c.st.latest(slotStats, token) {
		return c.stale("stats", token)
	}
	if err != nil {
		return err
	}
	c.view.ShowStats(stats)
	return nil
}

func (c *Controller) Companies(ctx context.Context) ([]string, error) {
	companies, err := c.backend.Companies(ctx)
	if err != nil {
		c.view.ShowError(describe(err, "Error loading companies", "Failed to load companies"))
		return nil, err
	}
	c.view.ShowCompanies(companies)
	return companies, nil
}

// Reset returns to the idle form. Any results request still in flight is
// dropped when it lands.
func (c *Controller) Reset() {
	c.st.clear()
	c.view.ClearFile()
	c.view.HideResults()
	c.view.HideError()
	c.view.SetProcessing(false)
}

// refresh reloads history and stats after a change. Failures are only
// logged; they must not replace what the user is looking at.
func (c *Controller) refresh(ctx context.Context) {
	if err := c.loadHistory(ctx, c.st.historyFilter()); err != nil && !errors.Is(err, ErrStale) {
		logger.Get().Warnw("history refresh failed", "error", err)
	}
	if !c.opts.TrackStats {
		return
	}
	if err := c.loadStats(ctx); err != nil && !errors.Is(err, ErrStale) {
		logger.Get().Warnw("stats refresh failed", "error", err)
	}
}

// staleUpload drops a superseded upload response. The indicator goes off
// unless another upload is still running; a newer view does not own it.
func (c *Controller) staleUpload(token uint64, pending int) error {
	if pending == 0 {
		c.view.SetProcessing(false)
	}
	return c.stale("upload", token)
}

func (c *Controller) stale(op string, token uint64) error {
	logger.Get().Debugw("dropping stale response", "op", op, "token", token)
	return ErrStale
}
