// Package sloghooks reports syncache hook events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/syncache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	FetchSharedEvery uint64
	// Optional key redactor. Defaults to the key itself; set RedactSHA to hash
	// keys that carry user identifiers.
	Redact    func(string) string
	RedactSHA bool
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	fetchSharedCtr atomic.Uint64
}

var _ syncache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	if !h.opts.RedactSHA {
		return k
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(key, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("syncache.self_heal", "key", h.redact(key), "reason", reason)
}

func (h *Hooks) ProviderSetRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("syncache.provider_set_rejected", "key", h.redact(key))
}

func (h *Hooks) GenSnapshotError(count int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("syncache.gen_snapshot_error", "count", count, "err", err)
}

func (h *Hooks) GenBumpError(count int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("syncache.gen_bump_error", "count", count, "err", err)
}

func (h *Hooks) InvalidateOutage(key string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("syncache.invalidate_outage",
		"key", h.redact(key),
		"bump_err", bumpErr,
		"del_err", delErr)
}

func (h *Hooks) FetchShared(key string) {
	if h.l == nil || !sample(h.opts.FetchSharedEvery, &h.fetchSharedCtr) {
		return
	}
	h.l.Debug("syncache.fetch_shared", "key", h.redact(key))
}

func (h *Hooks) FetchFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Info("syncache.fetch_failed", "key", h.redact(key), "err", err)
}

func (h *Hooks) StaleWriteSkipped(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("syncache.stale_write_skipped", "key", h.redact(key))
}

func (h *Hooks) MutationRolledBack(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Info("syncache.mutation_rolled_back", "key", h.redact(key), "err", err)
}

func (h *Hooks) Invalidated(topic string, removed int) {
	if h.l == nil {
		return
	}
	h.l.Debug("syncache.invalidated", "topic", topic, "removed", removed)
}
