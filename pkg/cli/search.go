package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/cli/config"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	nameColor    = color.New(color.FgGreen)
	detailColor  = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
)

func cmdSearch() *cli.Command {
	var dataset string
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "dataset",
			Aliases:     []string{"d"},
			Usage:       "Dataset to search (partner, funder)",
			Value:       types.DatasetPartner.String(),
			Destination: &dataset,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search contacts, organisations and tagged messages from the terminal",
		ArgsUsage: "<term>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			term := strings.Join(c.Args().Slice(), " ")
			q, err := model.NewQuery(term)
			if err != nil {
				return goerr.Wrap(err, "invalid search term", goerr.V("term", term))
			}

			ds := types.Dataset(dataset)
			if err := ds.Validate(); err != nil {
				return goerr.Wrap(config.ErrInvalidConfig, "unknown dataset", goerr.V(config.DatasetKey, dataset))
			}

			partner, funder, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer closeRepositories(partner, funder)

			repo := partner
			if ds == types.DatasetFunder {
				repo = funder
			}

			var w io.Writer = os.Stdout
			if root := c.Root(); root != nil && root.Writer != nil {
				w = root.Writer
			}
			return printSearch(ctx, w, repo, q)
		},
	}
}

// printSearch runs the contact, message and organisation searches and
// prints one section per kind.
func printSearch(ctx context.Context, w io.Writer, repo interfaces.Repository, q *model.Query) error {
	contacts, err := repo.Contact().Search(ctx, q)
	if err != nil {
		return goerr.Wrap(err, "failed to search contacts")
	}
	messages, err := repo.Message().Search(ctx, q)
	if err != nil {
		return goerr.Wrap(err, "failed to search messages")
	}
	orgs, err := repo.Organisation().Search(ctx, q)
	if err != nil {
		return goerr.Wrap(err, "failed to search organisations")
	}

	if len(contacts)+len(messages)+len(orgs) == 0 {
		_, _ = warnColor.Fprintf(w, "No results for %q\n", q.Term())
		return nil
	}

	_, _ = headingColor.Fprintf(w, "Contacts (%d)\n", len(contacts))
	slices.SortStableFunc(contacts, func(a, b *model.Contact) int {
		return strings.Compare(a.NameWithOrgs(), b.NameWithOrgs())
	})
	for _, ct := range contacts {
		_, _ = nameColor.Fprintf(w, "  %s", ct.NameWithOrgs())
		if ct.IsPointPerson() {
			_, _ = fmt.Fprint(w, " (point person)")
		}
		_, _ = fmt.Fprintln(w)
		if details := contactDetails(ct); details != "" {
			_, _ = detailColor.Fprintf(w, "    %s\n", details)
		}
	}

	_, _ = headingColor.Fprintf(w, "Messages (%d)\n", len(messages))
	for _, m := range messages {
		names := make([]string, 0, len(m.Contacts))
		for _, ct := range m.Contacts {
			names = append(names, ct.Name())
		}
		_, _ = nameColor.Fprintf(w, "  %s", m.PostedAt().Format("2006-01-02 15:04"))
		_, _ = fmt.Fprintf(w, " %s\n", firstLine(m.Text))
		if len(names) > 0 {
			_, _ = detailColor.Fprintf(w, "    with %s\n", strings.Join(names, ", "))
		}
	}

	_, _ = headingColor.Fprintf(w, "Organisations (%d)\n", len(orgs))
	for _, o := range orgs {
		_, _ = nameColor.Fprintf(w, "  %s\n", o.DisplayNameWithAbbrev())
		if o.Website != "" {
			_, _ = detailColor.Fprintf(w, "    %s\n", o.Website)
		}
	}
	return nil
}

func contactDetails(c *model.Contact) string {
	var parts []string
	for _, v := range []string{c.Role, c.Email, c.Phone} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
