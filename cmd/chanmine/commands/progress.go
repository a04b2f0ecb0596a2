package commands

import (
	"time"

	"github.com/pterm/pterm"

	"chanmine/internal/fetch"
)

// barProgress renders a per-channel fetch as a terminal progress bar. The
// bar's total is the advisory lead-id estimate from the fetcher and grows
// as newer messages are discovered.
type barProgress struct {
	bar *pterm.ProgressbarPrinter
}

func newBarProgress(channel string) fetch.Progress {
	bar, err := pterm.DefaultProgressbar.
		WithTitle("Scraping " + channel + " for messages").
		WithTotal(1).
		Start()
	if err != nil {
		return fetch.NopProgress{}
	}
	return &barProgress{bar: bar}
}

func (p *barProgress) Advance(n, estTotal int) {
	if estTotal > p.bar.Total {
		p.bar.Total = estTotal
	}
	p.bar.Add(n)
}

func (p *barProgress) Retry(err error, wait time.Duration) {
	pterm.Warning.Printfln("Error occurred: %v (retrying in %s)", err, wait)
}

func (p *barProgress) Done() {
	p.bar.Stop()
}
