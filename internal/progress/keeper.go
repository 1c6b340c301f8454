package progress

import (
	"context"
	"strings"
	"sync"

	"picturemission/internal/catalog"
)

// Keeper owns the in-memory progress document. Every mutation goes through
// apply, which persists the result before returning.
type Keeper struct {
	mu        sync.Mutex
	store     DocumentStore
	key       string
	cat       catalog.Catalog
	logger    Logger
	doc       Document
	observers []func(Document)
}

func NewKeeper(store DocumentStore, key string, cat catalog.Catalog, logger Logger) *Keeper {
	if strings.TrimSpace(key) == "" {
		key = DefaultStateKey
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Keeper{
		store:  store,
		key:    key,
		cat:    cat,
		logger: logger,
		doc:    DefaultDocument(),
	}
}

func (k *Keeper) Catalog() catalog.Catalog { return k.cat }

// Load reads the stored document. Read or decode failures fall back to the
// default document.
func (k *Keeper) Load(ctx context.Context) Document {
	doc := DefaultDocument()
	if k.store != nil {
		raw, ok, err := k.store.Get(ctx, k.key)
		switch {
		case err != nil:
			k.logger.Warn("state.load_failed", map[string]any{"key": k.key, "error": err.Error()})
		case ok:
			decoded, decErr := Decode(raw)
			if decErr != nil {
				k.logger.Warn("state.decode_failed", map[string]any{"key": k.key, "error": decErr.Error()})
			} else {
				doc = decoded
			}
		}
	}
	if Normalize(&doc, k.cat) {
		k.logger.Info("state.normalized", map[string]any{"key": k.key})
	}

	k.mu.Lock()
	k.doc = doc
	out := k.doc.Clone()
	k.mu.Unlock()
	return out
}

func (k *Keeper) Snapshot() Document {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.doc.Clone()
}

// Subscribe registers fn to receive a snapshot after every persisted change.
func (k *Keeper) Subscribe(fn func(Document)) {
	if fn == nil {
		return
	}
	k.mu.Lock()
	k.observers = append(k.observers, fn)
	k.mu.Unlock()
}

// apply runs fn against the document. fn reports whether it changed
// anything; only changed documents are persisted and broadcast.
func (k *Keeper) apply(ctx context.Context, op string, fn func(*Document) bool) bool {
	k.mu.Lock()
	if !fn(&k.doc) {
		k.mu.Unlock()
		return false
	}
	k.persistLocked(ctx, op)
	snap := k.doc.Clone()
	observers := append([]func(Document){}, k.observers...)
	k.mu.Unlock()

	for _, obs := range observers {
		obs(snap.Clone())
	}
	return true
}

// read runs fn against the document under the lock without mutating it.
func (k *Keeper) read(fn func(Document)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	fn(k.doc)
}

func (k *Keeper) persistLocked(ctx context.Context, op string) {
	if k.store == nil {
		return
	}
	raw, err := Encode(k.doc)
	if err != nil {
		k.logger.Error("state.encode_failed", map[string]any{"op": op, "error": err.Error()})
		return
	}
	if err := k.store.Put(ctx, k.key, raw); err != nil {
		k.logger.Warn("state.save_failed", map[string]any{"op": op, "key": k.key, "error": err.Error()})
	}
}

// Reset discards the stored document and returns to defaults.
func (k *Keeper) Reset(ctx context.Context) Document {
	if k.store != nil {
		if err := k.store.Delete(ctx, k.key); err != nil {
			k.logger.Warn("state.reset_failed", map[string]any{"key": k.key, "error": err.Error()})
		}
	}
	k.mu.Lock()
	k.doc = DefaultDocument()
	snap := k.doc.Clone()
	observers := append([]func(Document){}, k.observers...)
	k.mu.Unlock()

	k.logger.Info("state.reset", map[string]any{"key": k.key})
	for _, obs := range observers {
		obs(snap.Clone())
	}
	return snap
}

// Setup records the chosen photo and marks setup complete.
func (k *Keeper) Setup(ctx context.Context, photoRef string) {
	photoRef = strings.TrimSpace(photoRef)
	k.apply(ctx, "setup", func(d *Document) bool {
		if d.SetupComplete && d.PhotoReference == photoRef {
			return false
		}
		d.PhotoReference = photoRef
		d.SetupComplete = photoRef != ""
		return true
	})
}

func (k *Keeper) MarkGameStarted(ctx context.Context) {
	k.apply(ctx, "game_started", func(d *Document) bool {
		if d.GameStarted {
			return false
		}
		d.GameStarted = true
		return true
	})
}

// MarkPreviewShown sets the one-time preview flag. It returns true only for
// the call that set it.
func (k *Keeper) MarkPreviewShown(ctx context.Context) bool {
	return k.apply(ctx, "preview_shown", func(d *Document) bool {
		if d.PreviewShown {
			return false
		}
		d.PreviewShown = true
		return true
	})
}

// Restore replaces the document wholesale, normalised against the catalog,
// and persists it. Dev scenarios use it to jump to a known state.
func (k *Keeper) Restore(ctx context.Context, doc Document) Document {
	doc = doc.Clone()
	Normalize(&doc, k.cat)
	k.apply(ctx, "restore", func(d *Document) bool {
		*d = doc
		return true
	})
	return k.Snapshot()
}
