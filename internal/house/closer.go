package house

import (
	"time"

	"gavel/internal/common"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// RunCloser sweeps the hosted auctions every interval until the tomb dies.
func (h *House) RunCloser(t *tomb.Tomb, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("auction closer running")
	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep starts pending auctions whose start time has come and closes active
// auctions whose (possibly extended) end time has passed.
func (h *House) Sweep() {
	now := h.now()
	for _, id := range h.AuctionIDs() {
		l, err := h.lot(id)
		if err != nil {
			continue
		}

		switch l.engine.Status() {
		case common.Pending:
			if now.Before(l.engine.Config().StartTime) {
				continue
			}
			if err := l.engine.Start(); err != nil {
				log.Error().Err(err).Str("auction", id).Msg("unable to start auction")
			}
		case common.Active:
			if now.Before(l.engine.EndTime()) {
				continue
			}
			if _, err := h.Close(id); err != nil {
				log.Error().Err(err).Str("auction", id).Msg("unable to close auction")
			}
		}
	}
}
