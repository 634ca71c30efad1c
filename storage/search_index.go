package storage

import (
	"time"
)

// SessionMessageMatch is one cross-session search hit: a MessageMatch plus
// the session it came from.
type SessionMessageMatch struct {
	SessionID    string
	SessionName  string
	MessageIndex int
	Role         string
	Content      string
	Preview      string
	Timestamp    time.Time
}

// SearchIndex searches message content across every stored session. There
// is no persistent index; session counts stay small enough that a linear
// scan over the JSON files is instant.
type SearchIndex struct {
	storage *SessionStorage
}

func NewSearchIndex(storage *SessionStorage) *SearchIndex {
	return &SearchIndex{storage: storage}
}

// SearchAllSessions runs a case-insensitive substring search over all
// sessions. Sessions that fail to load are skipped rather than aborting
// the whole search.
func (si *SearchIndex) SearchAllSessions(query string) ([]SessionMessageMatch, error) {
	if query == "" {
		return []SessionMessageMatch{}, nil
	}

	sessionList, err := si.storage.List()
	if err != nil {
		return nil, err
	}

	var matches []SessionMessageMatch
	for _, meta := range sessionList {
		session, err := si.storage.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, m := range SearchMessages(session.Messages, query) {
			matches = append(matches, SessionMessageMatch{
				SessionID:    session.ID,
				SessionName:  session.Name,
				MessageIndex: m.MessageIndex,
				Role:         m.Role,
				Content:      m.Content,
				Preview:      m.Preview,
				Timestamp:    m.Timestamp,
			})
		}
	}
	return matches, nil
}
