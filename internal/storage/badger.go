package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"linkkeeper/internal/domain"
)

// BadgerRepository implements the Repository interface using BadgerDB.
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerRepository creates and initializes a new BadgerDB repository.
// It opens the database at the specified path.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.WithField("path", dbPath).Info("BadgerDB opened")

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing BadgerDB...")
	if err := r.db.Close(); err != nil {
		r.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	r.log.Info("BadgerDB closed.")
	return nil
}

// Key layout:
//
//	user:{userID}:link:{linkID}              -> domain.Link (JSON)
//	user:{userID}:url:{linkURL}              -> linkID
//	user:{userID}:collection:{collectionID}  -> domain.Collection (JSON)
//	preview:{linkID}                         -> raw image bytes
func linkKey(userID int64, linkID string) []byte {
	return []byte(fmt.Sprintf("user:%d:link:%s", userID, linkID))
}

func linkPrefix(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d:link:", userID))
}

func urlKey(userID int64, linkURL string) []byte {
	return []byte(fmt.Sprintf("user:%d:url:%s", userID, linkURL))
}

func collectionKey(userID int64, collectionID string) []byte {
	return []byte(fmt.Sprintf("user:%d:collection:%s", userID, collectionID))
}

func collectionPrefix(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d:collection:", userID))
}

func previewKey(linkID string) []byte {
	return []byte("preview:" + linkID)
}

// maxSaveAttempts bounds how often SaveLink reruns after a transaction conflict.
const maxSaveAttempts = 3

// SaveLink stores or updates a link in BadgerDB.
func (r *BadgerRepository) SaveLink(ctx context.Context, link domain.Link, preview []byte) error {
	log := r.log.WithFields(logrus.Fields{
		"user_id": link.UserID,
		"link_id": link.ID,
		"url":     link.URL,
	})

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = link.CreatedAt
	}

	linkBytes, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	save := func(txn *badger.Txn) error {
		ownerID, err := getString(txn, urlKey(link.UserID, link.URL))
		switch {
		case err == nil && ownerID != link.ID:
			return domain.ErrDuplicateURL
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}

		var previous domain.Link
		err = getJSON(txn, linkKey(link.UserID, link.ID), &previous)
		switch {
		case err == nil && previous.URL != link.URL:
			if err := txn.Delete(urlKey(link.UserID, previous.URL)); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if err := txn.Set(linkKey(link.UserID, link.ID), linkBytes); err != nil {
			return err
		}
		if err := txn.Set(urlKey(link.UserID, link.URL), []byte(link.ID)); err != nil {
			return err
		}
		if preview != nil {
			return txn.Set(previewKey(link.ID), preview)
		}
		return nil
	}

	// A conflict means a concurrent transaction touched the same keys, most
	// likely the URL index. Rerunning sees its committed write, so a lost race
	// for the same URL ends in ErrDuplicateURL.
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		err = r.db.Update(save)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		log.WithField("attempt", attempt+1).Debug("Transaction conflict saving link, retrying")
	}
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			return err
		}
		log.WithError(err).Error("Failed to save link to BadgerDB")
		return fmt.Errorf("failed to save link: %w", err)
	}

	log.Debug("Link saved")
	return nil
}

// GetLink retrieves a single link owned by userID.
func (r *BadgerRepository) GetLink(ctx context.Context, userID int64, linkID string) (domain.Link, error) {
	var link domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, linkKey(userID, linkID), &link)
	})
	if err != nil {
		return domain.Link{}, r.wrapReadErr(err, "get link")
	}
	return link, nil
}

// FindLinkByURL resolves the URL index and loads the link.
func (r *BadgerRepository) FindLinkByURL(ctx context.Context, userID int64, linkURL string) (domain.Link, error) {
	var link domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		linkID, err := getString(txn, urlKey(userID, linkURL))
		if err != nil {
			return err
		}
		return getJSON(txn, linkKey(userID, linkID), &link)
	})
	if err != nil {
		return domain.Link{}, r.wrapReadErr(err, "find link by url")
	}
	return link, nil
}

// GetLinksByUser retrieves all links for a specific user.
func (r *BadgerRepository) GetLinksByUser(ctx context.Context, userID int64) ([]domain.Link, error) {
	var links []domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		links, err = scanPrefix[domain.Link](txn, linkPrefix(userID))
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to retrieve links from BadgerDB")
		return nil, fmt.Errorf("failed to get links for user %d: %w", userID, err)
	}

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

// DeleteLink removes a specific link for a user.
func (r *BadgerRepository) DeleteLink(ctx context.Context, userID int64, linkID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		var link domain.Link
		if err := getJSON(txn, linkKey(userID, linkID), &link); err != nil {
			return err
		}
		for _, key := range [][]byte{linkKey(userID, linkID), urlKey(userID, link.URL), previewKey(linkID)} {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.wrapReadErr(err, "delete link")
	}

	r.log.WithFields(logrus.Fields{"user_id": userID, "link_id": linkID}).Info("Link deleted")
	return nil
}

// GetPreview returns the stored preview image of a link.
func (r *BadgerRepository) GetPreview(ctx context.Context, linkID string) ([]byte, error) {
	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(previewKey(linkID))
		if err != nil {
			return notFound(err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, r.wrapReadErr(err, "get preview")
	}
	return data, nil
}

// SaveCollection creates or replaces a collection.
func (r *BadgerRepository) SaveCollection(ctx context.Context, collection domain.Collection) error {
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = time.Now().UTC()
	}
	if collection.UpdatedAt.IsZero() {
		collection.UpdatedAt = collection.CreatedAt
	}

	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(collectionKey(collection.UserID, collection.ID), data)
	})
	if err != nil {
		r.log.WithError(err).WithField("collection_id", collection.ID).Error("Failed to save collection to BadgerDB")
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

// GetCollection retrieves a collection owned by userID.
func (r *BadgerRepository) GetCollection(ctx context.Context, userID int64, collectionID string) (domain.Collection, error) {
	var collection domain.Collection
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, collectionKey(userID, collectionID), &collection)
	})
	if err != nil {
		return domain.Collection{}, r.wrapReadErr(err, "get collection")
	}
	return collection, nil
}

// GetCollectionsByUser retrieves all collections for a user.
func (r *BadgerRepository) GetCollectionsByUser(ctx context.Context, userID int64) ([]domain.Collection, error) {
	var collections []domain.Collection
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		collections, err = scanPrefix[domain.Collection](txn, collectionPrefix(userID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get collections for user %d: %w", userID, err)
	}

	sort.SliceStable(collections, func(i, j int) bool {
		return collections[i].CreatedAt.After(collections[j].CreatedAt)
	})
	return collections, nil
}

// DeleteCollection removes the collection and strips it from every link of the user.
func (r *BadgerRepository) DeleteCollection(ctx context.Context, userID int64, collectionID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(collectionKey(userID, collectionID)); err != nil {
			return notFound(err)
		}
		if err := txn.Delete(collectionKey(userID, collectionID)); err != nil {
			return err
		}

		links, err := scanPrefix[domain.Link](txn, linkPrefix(userID))
		if err != nil {
			return err
		}
		for _, link := range links {
			if !link.InCollection(collectionID) {
				continue
			}
			kept := link.Collections[:0]
			for _, id := range link.Collections {
				if id != collectionID {
					kept = append(kept, id)
				}
			}
			link.Collections = kept
			data, err := json.Marshal(link)
			if err != nil {
				return err
			}
			if err := txn.Set(linkKey(userID, link.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.wrapReadErr(err, "delete collection")
	}

	r.log.WithFields(logrus.Fields{"user_id": userID, "collection_id": collectionID}).Info("Collection deleted")
	return nil
}

// RunGC periodically reclaims value log space until ctx is cancelled.
func (r *BadgerRepository) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := r.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				r.log.Info("BadgerDB GC completed")
			case errors.Is(err, badger.ErrNoRewrite):
				r.log.Debug("BadgerDB GC: no rewrite needed")
			default:
				r.log.WithError(err).Error("BadgerDB GC failed")
			}
		case <-ctx.Done():
			r.log.Info("Stopping BadgerDB GC routine")
			return
		}
	}
}

func (r *BadgerRepository) wrapReadErr(err error, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	r.log.WithError(err).Errorf("Failed to %s", op)
	return fmt.Errorf("failed to %s: %w", op, err)
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", notFound(err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return notFound(err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("unmarshal %s: %w", key, err)
		}
		return nil
	})
}

func scanPrefix[T any](txn *badger.Txn, prefix []byte) ([]T, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var out []T
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		err := item.Value(func(val []byte) error {
			var v T
			if err := json.Unmarshal(val, &v); err != nil {
				return fmt.Errorf("failed to unmarshal value for key %s: %w", item.Key(), err)
			}
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
