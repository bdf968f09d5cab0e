package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/roelfdiedericks/pagesmith/internal/history"
	"github.com/roelfdiedericks/pagesmith/internal/paths"
)

type historyCmd struct {
	List   historyListCmd   `cmd:"" default:"1" help:"List past generations."`
	Show   historyShowCmd   `cmd:"" help:"Show one generation's details."`
	HTML   historyHTMLCmd   `cmd:"" name:"html" help:"Print a generation's HTML document."`
	Delete historyDeleteCmd `cmd:"" help:"Delete a generation."`
	Prune  historyPruneCmd  `cmd:"" help:"Apply the retention policy now."`
}

func openHistory() (*history.Store, error) {
	dbPath, err := paths.HistoryDBPath()
	if err != nil {
		return nil, err
	}
	return history.Open(dbPath)
}

type historyListCmd struct {
	Limit  int `default:"20" help:"Number of rows to show."`
	Offset int `help:"Rows to skip."`
}

func (c *historyListCmd) Run(*appContext) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(c.Limit, c.Offset)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no generations recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tMODEL\tPROVIDER\tSTATUS\tSIZE\tDURATION")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.ID,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Model,
			rec.Provider,
			rec.Status,
			rec.HTMLBytes,
			time.Duration(rec.DurationMs)*time.Millisecond,
		)
	}
	return w.Flush()
}

type historyShowCmd struct {
	ID string `arg:"" help:"Generation id."`
}

func (c *historyShowCmd) Run(*appContext) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(c.ID)
	if err != nil {
		return err
	}

	fmt.Printf("id:       %s\n", rec.ID)
	fmt.Printf("created:  %s\n", rec.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("model:    %s\n", rec.Model)
	fmt.Printf("provider: %s\n", rec.Provider)
	fmt.Printf("status:   %s\n", rec.Status)
	fmt.Printf("duration: %s\n", time.Duration(rec.DurationMs)*time.Millisecond)
	fmt.Printf("html:     %d bytes\n", rec.HTMLBytes)
	if rec.Prompt != "" {
		fmt.Printf("prompt:   %s\n", rec.Prompt)
	}
	if rec.Usage != nil {
		fmt.Printf("tokens:   %d in / %d out\n", rec.Usage.InputTokens, rec.Usage.OutputTokens)
	}
	if rec.Cost != nil {
		fmt.Printf("cost:     $%.4f (%s)\n", rec.Cost.TotalUSD, rec.Cost.PricingMatchedModel)
	}
	for i, att := range rec.Attempts {
		status := att.Status
		if att.StatusCode != 0 {
			status = fmt.Sprintf("%s (%d)", att.Status, att.StatusCode)
		}
		fmt.Printf("attempt %d: %s via %s %s\n", i+1, att.Model, att.Provider, status)
	}
	return nil
}

type historyHTMLCmd struct {
	ID string `arg:"" help:"Generation id."`
}

func (c *historyHTMLCmd) Run(*appContext) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(c.ID)
	if err != nil {
		return err
	}
	fmt.Println(rec.HTML)
	return nil
}

type historyDeleteCmd struct {
	ID string `arg:"" help:"Generation id."`
}

func (c *historyDeleteCmd) Run(*appContext) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(c.ID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", c.ID)
	return nil
}

type historyPruneCmd struct {
	MaxAgeDays int `help:"Override the configured age bound."`
	MaxRows    int `help:"Override the configured row bound."`
}

func (c *historyPruneCmd) Run(app *appContext) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	maxAge := app.cfg.History.MaxAgeDays
	maxRows := app.cfg.History.MaxRows
	if c.MaxAgeDays > 0 {
		maxAge = c.MaxAgeDays
	}
	if c.MaxRows > 0 {
		maxRows = c.MaxRows
	}

	pruned, err := store.Prune(maxAge, maxRows)
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d generation(s)\n", pruned)
	return nil
}
