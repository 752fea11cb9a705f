package api

import (
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/gridlock-systems/junction.report/internal/journal"
)

// MountDebug attaches the tsweb debugger and a tailSQL console over the
// journal database to mux. Gated behind the -debug flag: the console can
// run arbitrary read queries against the journal.
func MountDebug(mux *http.ServeMux, j *journal.Journal, dbLabel string) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return err
	}
	tsql.SetDB("sqlite://journal.db", j.DB, &tailsql.DBOptions{
		Label: dbLabel,
	})

	debug.Handle("tailsql/", "SQL console over the decision journal", tsql.NewMux())
	return nil
}
