package review

import (
	"sync"

	"insreview/internal"
	"insreview/internal/fileinfo"
)

type slot int

const (
	slotResults slot = iota
	slotHistory
	slotStats
	numSlots
)

// state is the page-lifetime selection plus one monotonic request token per
// display slot. A response may only touch its slot if its token is still
// the latest one issued.
type state struct {
	mu sync.Mutex

	file    *fileinfo.Info
	company string

	hasRecord bool
	recordID  internal.RecordID
	data      internal.Record
	resultsOn bool

	needsReview bool

	uploads int

	seq [numSlots]uint64
}

func (s *state) begin(sl slot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[sl]++
	return s.seq[sl]
}

func (s *state) latest(sl slot, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[sl] == token
}

// commitRecord makes the record current if token is still the latest for
// the results slot. It reports whether it did.
func (s *state) commitRecord(token uint64, id internal.RecordID, data internal.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[slotResults] != token {
		return false
	}
	s.hasRecord = true
	s.recordID = id
	s.data = data
	s.resultsOn = true
	return true
}

// clear drops the selection and invalidates any in-flight results request.
func (s *state) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = nil
	s.hasRecord = false
	s.recordID = 0
	s.data = nil
	s.resultsOn = false
	s.seq[slotResults]++
}

func (s *state) isCurrent(id internal.RecordID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasRecord && s.recordID == id
}

func (s *state) setFile(info fileinfo.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = &info
}

func (s *state) selectedFile() (fileinfo.Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fileinfo.Info{}, false
	}
	return *s.file, true
}

func (s *state) setCompany(company string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.company = company
}

func (s *state) selectedCompany() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.company
}

func (s *state) current() (internal.RecordID, internal.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordID, s.data, s.hasRecord
}

// dropRecord forgets the current record so nothing hidden can be exported.
func (s *state) dropRecord() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasRecord = false
	s.recordID = 0
	s.data = nil
	s.resultsOn = false
}

func (s *state) startUpload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
}

// finishUpload reports how many uploads are still in flight.
func (s *state) finishUpload() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads--
	return s.uploads
}

func (s *state) resultsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultsOn
}

func (s *state) setHistoryFilter(needsReview bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needsReview = needsReview
}

func (s *state) historyFilter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsReview
}
