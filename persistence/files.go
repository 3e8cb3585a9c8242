package persistence

import (
	"fmt"

	"github.com/bluebeam/bluebeam/internal/errs"
)

// AddFile records a new file-transfer, defaulting Status to pending
// and Timestamp to now when left zero.
func (s *Store) AddFile(f FileTransfer) error {
	if f.Timestamp.IsZero() {
		f.Timestamp = nowUTC()
	}
	if f.Status == "" {
		f.Status = FilePending
	}
	if err := s.db.Create(&f).Error; err != nil {
		return errs.Transfer(errs.CodeTransferFailed, fmt.Errorf("add file %s: %w", f.ID, err))
	}
	return nil
}

// GetFiles returns every file-transfer record, most recent first.
func (s *Store) GetFiles() ([]FileTransfer, error) {
	var files []FileTransfer
	if err := s.db.Order("timestamp DESC").Find(&files).Error; err != nil {
		return nil, errs.Database(errs.CodeQueryFailed, fmt.Errorf("list files: %w", err))
	}
	return files, nil
}

// UpdateFileProgress advances id's sent size and, when provided,
// status. sentSize must not exceed the record's total size, and a
// transfer already Complete or Failed cannot be progressed further.
func (s *Store) UpdateFileProgress(id string, sentSize int64, status FileStatus) error {
	var current FileTransfer
	if err := s.db.Where("id = ?", id).First(&current).Error; err != nil {
		return errs.Database(errs.CodeNotFound, fmt.Errorf("get file %s: %w", id, err))
	}
	if current.Status == FileComplete || current.Status == FileFailed {
		return errs.Transfer(errs.CodeTransferFailed, fmt.Errorf("file %s: transfer already terminal (%s)", id, current.Status))
	}
	if sentSize > current.TotalSize {
		return errs.Transfer(errs.CodeTransferFailed, fmt.Errorf("file %s: sent size %d exceeds total %d", id, sentSize, current.TotalSize))
	}
	updates := map[string]interface{}{"sent_size": sentSize}
	if status != "" {
		updates["status"] = status
	}
	if err := s.db.Model(&FileTransfer{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return errs.Database(errs.CodeQueryFailed, fmt.Errorf("update file progress %s: %w", id, err))
	}
	return nil
}
