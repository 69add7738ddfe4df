package publishctlcmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/publisher-tools/publisher"
	"github.com/publisher-tools/publisher/runner"
)

var (
	statusOpt = struct {
		Name string
	}{}

	statusCmd = cobra.Command{
		Use:   "status",
		Short: "Report live state for one or all applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := newReconciler(runner.OS{})
			if err != nil {
				fmt.Println("status:", err)
				return nil
			}
			apps, err := rec.Status(cmd.Context(), statusOpt.Name)
			if err != nil {
				// Status reports problems inline and always exits 0.
				fmt.Println("status:", err)
				return nil
			}
			printStatus(apps)
			return nil
		},
	}
)

func init() {
	statusCmd.Flags().StringVar(&statusOpt.Name, "name", "", "Report a single application")
}

func printStatus(apps []publisher.AppStatus) {
	au := aurora.NewAurora(term.IsTerminal(int(os.Stdout.Fd())))
	good := func(ok bool, yes, no string) aurora.Value {
		if ok {
			return au.Green(yes)
		}
		return au.Red(no)
	}

	for _, app := range apps {
		fmt.Printf("\n[%s] %s (%s)\n", app.Name, app.Domain, app.Kind)
		tw := tabwriter.NewWriter(os.Stdout, 8, 4, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, " apache site:\t%s\n", good(app.SitePresent, "present", "missing"))
		if app.UnitActive != nil {
			_, _ = fmt.Fprintf(tw, " service:\t%s\n", good(*app.UnitActive, "active", "inactive"))
		}
		if app.ContainersUp != nil {
			_, _ = fmt.Fprintf(tw, " containers:\t%s\n", good(*app.ContainersUp, "up", "none"))
		}
		if app.Health != nil {
			switch {
			case app.Health.Err != nil:
				_, _ = fmt.Fprintf(tw, " health:\t%s\n", au.Red("failed"))
			case app.Health.Healthy():
				_, _ = fmt.Fprintf(tw, " health:\t%s\n", au.Green(strconv.Itoa(app.Health.StatusCode)))
			default:
				_, _ = fmt.Fprintf(tw, " health:\t%s\n", au.Yellow(strconv.Itoa(app.Health.StatusCode)))
			}
		}
		_ = tw.Flush()
	}
}
