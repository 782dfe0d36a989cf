package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/richinex/booksearch/model"
	"github.com/richinex/booksearch/prowlarr"
	"github.com/richinex/booksearch/storage"
)

// searchRequest is one search as the user asked for it.
type searchRequest struct {
	term     string
	kind     model.Kind
	protocol model.Protocol
	mode     model.Mode
}

// Interactive runs the menu driven flow: media kind, term, results and a
// selection loop. Quitting at any prompt is not an error.
func (a *App) Interactive(ctx context.Context, opts Options) error {
	p := newPrompter(a.In, a.Out)

	kind, ok := a.chooseKind(p)
	if !ok {
		return nil
	}
	term, ok := a.askTerm(p)
	if !ok {
		return nil
	}

	fmt.Fprintln(a.Out, "\n🔍 Searching through multiple sources...")
	return a.searchAndShow(ctx, p, searchRequest{
		term:     term,
		kind:     kind,
		protocol: opts.Protocol,
		mode:     model.ModeInteractive,
	})
}

// SearchTerms runs a search for the terms given on the command line.
func (a *App) SearchTerms(ctx context.Context, opts Options) error {
	mode := model.ModeInteractive
	if opts.Headless {
		mode = model.ModeHeadless
	}
	return a.searchAndShow(ctx, newPrompter(a.In, a.Out), searchRequest{
		term:     strings.Join(opts.Terms, " "),
		kind:     opts.Kind,
		protocol: opts.Protocol,
		mode:     mode,
	})
}

func (a *App) searchAndShow(ctx context.Context, p *prompter, req searchRequest) error {
	for {
		releases, err := a.search(ctx, req)
		if err != nil {
			return err
		}

		if len(releases) == 0 {
			fmt.Fprintln(a.Out, "No results found")
			if req.mode == model.ModeHeadless || !p.confirm("\n🔁 Search again? [y/N] ") {
				return nil
			}
			continue
		}

		rec := storage.SearchRecord{
			Term:      req.term,
			Kind:      req.kind,
			Protocol:  req.protocol,
			Mode:      req.mode,
			Timestamp: a.Now(),
			Results:   releases,
		}
		id, err := a.Store.Create(ctx, rec)
		if err != nil {
			return err
		}
		rec.ID = id

		sorted := model.SortBySize(releases)
		if req.mode == model.ModeHeadless {
			renderHeadless(a.Out, sorted, rec, a.Program, a.Limits.MaxAge)
			return nil
		}
		renderResults(a.Out, sorted, id, a.Program)
		return a.selectLoop(ctx, p, sorted)
	}
}

func (a *App) search(ctx context.Context, req searchRequest) ([]model.Release, error) {
	spinner := NewSpinner(a.Out, "Searching", a.Spinner)
	spinner.Start()
	defer spinner.Stop()

	tags, err := a.Client.ResolveTags(ctx)
	if err != nil {
		return nil, err
	}
	q := prowlarr.Query{Term: req.term, TagIDs: tags.For(req.kind), Protocol: req.protocol}
	a.Logger.Debug("executing search", "term", q.Term, "tags", q.TagIDs, "protocol", q.Protocol.String())

	releases, err := a.Client.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("results summary",
		"total", len(releases),
		"protocols", model.Protocols(releases),
		"indexers", model.Indexers(releases),
	)
	return releases, nil
}

// selectLoop grabs each chosen result until the user quits. releases are
// in display order. Grab failures are reported and the loop continues.
func (a *App) selectLoop(ctx context.Context, p *prompter, releases []model.Release) error {
	for {
		input, ok := p.ask("\nEnter result number to download (or 'q' to quit): ")
		if !ok || strings.EqualFold(input, "q") {
			return nil
		}
		n, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintln(a.Out, "Please enter a valid number")
			continue
		}
		if n < 1 || n > len(releases) {
			fmt.Fprintln(a.Out, "Invalid selection. Please try again.")
			continue
		}
		if err := a.grab(ctx, releases[n-1]); err != nil {
			fmt.Fprintf(a.Out, "\n❌ Error: %v\n", err)
			a.Logger.Debug("interactive grab failed", "result", n, "error", err)
		}
	}
}

func (a *App) chooseKind(p *prompter) (model.Kind, bool) {
	for {
		fmt.Fprint(a.Out, kindMenu)
		choice, ok := p.ask("\n✨ Your choice > ")
		if !ok {
			return "", false
		}
		switch strings.ToLower(choice) {
		case "q":
			return "", false
		case "1":
			return model.KindAudiobooks, true
		case "2":
			return model.KindEbook, true
		case "3":
			return model.KindBoth, true
		default:
			fmt.Fprintln(a.Out, "\n❌ Please choose 1, 2, 3, or q to quit")
		}
	}
}

func (a *App) askTerm(p *prompter) (string, bool) {
	for {
		fmt.Fprint(a.Out, termHelp)
		term, ok := p.ask("\n🔎 Search > ")
		if !ok || strings.EqualFold(term, "q") {
			return "", false
		}
		if term != "" {
			return term, true
		}
		fmt.Fprintln(a.Out, "\n❌ Please enter a search term")
	}
}

const kindMenu = `
📚 Welcome to booksearch! 📚
───────────────────────────
Choose what type of books you're looking for:

1) 🎧 Audiobooks
   Perfect for listening while commuting or doing other activities

2) 📚 eBooks
   Digital books for your e-reader or tablet

3) 🎧+📚 Both Formats
   Search for both audiobooks and ebooks simultaneously

q) ❌ Quit
`

const termHelp = `
🔍 Enter Your Search Term:
─────────────────────────
✨ You can search by:
  📝 Book title (e.g., 'The Great Gatsby')
  👤 Author name (e.g., 'Stephen King')
  📚 Series name (e.g., 'Harry Potter')

❌ Type 'q' to quit
`
