package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/lychee-technology/sift"
	"github.com/lychee-technology/sift/internal"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg := sift.DefaultConfig()
	translator := internal.NewTranslator()
	cache := internal.NewQueryCache(cfg.Cache.MaxEntries)
	pipeline := internal.NewPipeline(cfg, translator, nil, cache)

	store := internal.NewRowStore()
	for entity, rows := range sampleData() {
		store.SetRows(entity, rows)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	entity := sift.EntityTasks
	session := &internal.PreviewSession{}

	color.Cyan("sift repl. type a query, :entity <name>, :rows, or :quit")

	for {
		input, err := line.Prompt(fmt.Sprintf("%s> ", entity))
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == ":quit" || input == ":q":
			return
		case input == ":rows":
			printRows(store.Rows(entity))
			continue
		case strings.HasPrefix(input, ":entity "):
			next := sift.Entity(strings.TrimSpace(strings.TrimPrefix(input, ":entity ")))
			if !next.Valid() {
				color.Red("unknown entity %q (want one of %v)", next, sift.Entities())
				continue
			}
			entity = next
			continue
		}

		runQuery(pipeline, store, session, entity, input)
	}
}

// runQuery shows the instant heuristic guess first, then replaces it with
// the authoritative resolution. The session sequence number drops the
// authoritative result if a newer query has started in the meantime.
func runQuery(pipeline *internal.Pipeline, store *internal.RowStore, session *internal.PreviewSession, entity sift.Entity, text string) {
	rows := store.Rows(entity)
	req := sift.SearchRequest{
		Entity: entity,
		Text:   text,
		Schema: sift.InferSchema(rows, sift.DefaultMaxSamples),
	}

	seq := session.Begin()
	if preview := pipeline.Preview(req); preview != nil {
		matched := sift.Apply(rows, preview)
		color.Yellow("preview: %s (%d rows)", renderNode(preview), len(matched))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		res, err := pipeline.Resolve(ctx, req)
		session.Deliver(seq, func() {
			if err != nil {
				color.Red("error: %v", err)
				return
			}
			matched := sift.Apply(rows, res.Filter)
			color.Green("%s via %s (%d rows)", renderNode(res.Filter), res.Source, len(matched))
			printRows(matched)
			store.SetView(entity, &internal.FilteredView{
				Name:   internal.NormalizeQuery(text),
				Filter: res.Filter,
				Source: res.Source,
				Rows:   matched,
			})
		})
	}()
	<-done
}

func renderNode(node sift.Node) string {
	raw, err := json.Marshal(node)
	if err != nil {
		return fmt.Sprintf("%v", node)
	}
	return string(raw)
}

func printRows(rows []sift.Row) {
	if len(rows) == 0 {
		fmt.Println("  (no rows)")
		return
	}
	for i, row := range rows {
		raw, _ := json.Marshal(row)
		fmt.Printf("  %2d %s\n", i+1, raw)
		if i >= 9 {
			fmt.Printf("  ... %d more\n", len(rows)-10)
			break
		}
	}
}

// sampleData seeds the store so the repl is usable without a backend.
func sampleData() map[sift.Entity][]sift.Row {
	return map[sift.Entity][]sift.Row{
		sift.EntityClients: {
			{"ClientID": "C1", "ClientName": "Acme", "PriorityLevel": float64(5), "RequestedTaskIDs": "T1,T2", "GroupTag": "enterprise"},
			{"ClientID": "C2", "ClientName": "Globex", "PriorityLevel": float64(3), "RequestedTaskIDs": "T3", "GroupTag": "smb"},
			{"ClientID": "C3", "ClientName": "Initech", "PriorityLevel": float64(1), "RequestedTaskIDs": "T2,T4", "GroupTag": "smb"},
		},
		sift.EntityWorkers: {
			{"WorkerID": "W1", "WorkerName": "Ada", "Skills": "welding,coding", "AvailableSlots": "[1,2,3]", "MaxLoadPerPhase": float64(2), "QualificationLevel": float64(4)},
			{"WorkerID": "W2", "WorkerName": "Grace", "Skills": "coding", "AvailableSlots": "[2,4]", "MaxLoadPerPhase": float64(1), "QualificationLevel": float64(5)},
			{"WorkerID": "W3", "WorkerName": "Alan", "Skills": "analysis", "AvailableSlots": "[1,5]", "MaxLoadPerPhase": float64(3), "QualificationLevel": float64(2)},
		},
		sift.EntityTasks: {
			{"TaskID": "T1", "TaskName": "Assemble", "Category": "build", "Duration": float64(2), "RequiredSkills": "welding", "PreferredPhases": "[1,2]", "MaxConcurrent": float64(2)},
			{"TaskID": "T2", "TaskName": "Review", "Category": "qa", "Duration": float64(1), "RequiredSkills": "analysis", "PreferredPhases": "[2,3,4]", "MaxConcurrent": float64(1)},
			{"TaskID": "T3", "TaskName": "Ship", "Category": "build", "Duration": float64(3), "RequiredSkills": "coding,welding", "PreferredPhases": "[3]", "MaxConcurrent": float64(4)},
			{"TaskID": "T4", "TaskName": "Audit", "Category": "qa", "Duration": float64(4), "RequiredSkills": "analysis", "PreferredPhases": "[1,5]", "MaxConcurrent": float64(1)},
		},
	}
}
