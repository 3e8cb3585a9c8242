package persistence

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/bluebeam/bluebeam/internal/errs"
)

// AddPeer inserts peer or replaces the existing row with the same id,
// stamping LastSeen with the current time if the caller left it zero.
func (s *Store) AddPeer(peer Peer) error {
	if peer.LastSeen.IsZero() {
		peer.LastSeen = nowUTC()
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&peer).Error
	if err != nil {
		return errs.Database(errs.CodeQueryFailed, fmt.Errorf("add peer %s: %w", peer.ID, err))
	}
	return nil
}

// GetPeers returns all known peers, most recently seen first.
func (s *Store) GetPeers() ([]Peer, error) {
	var peers []Peer
	if err := s.db.Order("last_seen DESC").Find(&peers).Error; err != nil {
		return nil, errs.Database(errs.CodeQueryFailed, fmt.Errorf("list peers: %w", err))
	}
	return peers, nil
}

// GetPeer looks up a single peer by id.
func (s *Store) GetPeer(id string) (*Peer, error) {
	var peer Peer
	err := s.db.Where("id = ?", id).First(&peer).Error
	if err != nil {
		return nil, errs.Database(errs.CodeNotFound, fmt.Errorf("get peer %s: %w", id, err))
	}
	return &peer, nil
}

// SetTrusted updates whether id is a trusted peer.
func (s *Store) SetTrusted(id string, trusted bool) error {
	err := s.db.Model(&Peer{}).Where("id = ?", id).Update("trusted", trusted).Error
	if err != nil {
		return errs.Database(errs.CodeQueryFailed, fmt.Errorf("set trusted %s: %w", id, err))
	}
	return nil
}
