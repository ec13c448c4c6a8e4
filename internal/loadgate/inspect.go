package loadgate

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/history"
)

const redacted = "<redacted>"

// PrintConfig writes the resolved config as YAML. Secrets are redacted.
func (a *App) PrintConfig() error {
	config := a.Params.Config
	if config.Proxy.Password != "" {
		config.Proxy.Password = redacted
	}
	out, err := yaml.Marshal(config)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = a.Out.Write(out)
	return errors.WithStack(err)
}

// HistoryFormat is the output format of History.
type HistoryFormat string

const (
	HistoryTable HistoryFormat = "table"
	HistoryYaml  HistoryFormat = "yaml"
)

// History prints the most recent orchestrations recorded in the history database, newest first.
// A limit of 0 prints all of them.
func (a *App) History(ctx *gatecontext.Context, limit int, format HistoryFormat) error {
	path := a.Params.Config.History.Database
	if path == "" {
		return errors.WithStack(&gateerrors.ErrInvalidArgument{
			Name:    "history.database",
			Value:   path,
			Message: "no history database configured",
		})
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer fileutil.CloseResource("history store", store)

	orchestrations, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	switch format {
	case HistoryYaml:
		out, err := k8syaml.Marshal(orchestrations)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = a.Out.Write(out)
		return errors.WithStack(err)
	case HistoryTable, "":
		w := tabwriter.NewWriter(a.Out, 1, 1, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "RUN ID\tSTARTED\tDURATION\tTESTS\tERRORS\tFAILURES\tRESULT")
		for _, o := range orchestrations {
			result := "passed"
			if o.Failed {
				result = "failed"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				o.RunID,
				time.UnixMilli(o.Started).UTC().Format(time.RFC3339),
				time.Duration(o.Finished-o.Started)*time.Millisecond,
				o.Tests,
				o.Errors,
				o.Failures,
				result,
			)
		}
		return nil
	default:
		return errors.WithStack(&gateerrors.ErrInvalidArgument{
			Name:    "output",
			Value:   format,
			Message: "must be one of table, yaml",
		})
	}
}
