package tritonlink

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/tritonscrape/internal/logger"
)

// extract retrieves the rendered document of page index and stores it under
// slot. The slot is only written if the step wins against its deadline.
func extract(index int, slot string, minBytes int) func(a *attempt) {
	return func(a *attempt) {
		p, ok := a.page(index)
		if !ok {
			return
		}

		html, err := p.Content(a.ctx)
		if err != nil {
			a.fail(ErrContentRetrieval, err)
			return
		}

		doc := Document{
			Slot:      slot,
			HTML:      html,
			FetchedAt: time.Now(),
		}
		if u, err := p.CurrentURL(a.ctx); err == nil {
			doc.URL = u
		}

		loginPage, err := inspect(&doc)
		if err != nil {
			a.fail(ErrContentRetrieval, fmt.Errorf("parse %s: %w", slot, err))
			return
		}
		if loginPage {
			a.fail(ErrContentRetrieval, ErrLoginPage)
			return
		}
		if minBytes > 0 && doc.Bytes < minBytes {
			a.fail(ErrContentRetrieval, fmt.Errorf("%w: %s is %s, want at least %s", ErrContentTooSmall,
				slot, humanize.Bytes(uint64(doc.Bytes)), humanize.Bytes(uint64(minBytes))))
			return
		}

		a.succeed(func() error {
			if err := a.session.fill(doc); err != nil {
				return a.errorf(ErrContentRetrieval, err)
			}
			logger.Info("document extracted",
				"slot", slot,
				"title", doc.Title,
				"size", humanize.Bytes(uint64(doc.Bytes)))
			return nil
		})
	}
}
