package main

import (
	"strings"

	"github.com/spf13/cobra"

	"healthlog/internal/docsync"
	"healthlog/pkg/domain"
)

// shortIDLen is how many characters of an id the list commands print.
const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// resolveID expands a full id or a unique prefix of one. Unknown references
// are returned unchanged so the domain layer reports them as not found.
func resolveID(ref string, ids []string) (string, error) {
	ref = strings.TrimSpace(ref)
	var match string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", usagef("id %q is ambiguous", ref)
			}
			match = id
		}
	}
	if match == "" {
		return ref, nil
	}
	return match, nil
}

func ids[T domain.Record](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.RecordID())
	}
	return out
}

// updateLog opens the documents, runs edit against the log and reports the
// outcome with msg.
func (a *app) updateLog(cmd *cobra.Command, edit func(snap docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error)) error {
	snap, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	if err := requireLog(snap); err != nil {
		return err
	}
	var msg string
	merged, err := a.ws.UpdateLog(cmd.Context(), func(d domain.LogDocument) (domain.LogDocument, error) {
		out, m, err := edit(snap, d)
		msg = m
		return out, err
	})
	if err != nil {
		return err
	}
	a.saved(msg, merged)
	return nil
}

func newEpisodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "episode",
		Aliases: []string{"ep"},
		Short:   "Track illness episodes",
	}
	end := episodeIDCmd(a, "end <episode>", "Mark an episode as over", "Ended", func(cmd *cobra.Command) func(domain.LogDocument, string) (domain.LogDocument, error) {
		return func(d domain.LogDocument, id string) (domain.LogDocument, error) {
			raw, _ := cmd.Flags().GetString("at")
			at, err := parseWhen(raw, a.now())
			if err != nil {
				return d, err
			}
			return domain.EndEpisode(d, id, at, a.now())
		}
	})
	end.Flags().String("at", "", "when the episode ended (default now)")
	cmd.AddCommand(
		newEpisodeStartCmd(a),
		newEpisodeEditCmd(a),
		end,
		episodeIDCmd(a, "reopen <episode>", "Clear the end of an episode", "Reopened", func(*cobra.Command) func(domain.LogDocument, string) (domain.LogDocument, error) {
			return func(d domain.LogDocument, id string) (domain.LogDocument, error) {
				return domain.ReopenEpisode(d, id, a.now())
			}
		}),
		episodeIDCmd(a, "delete <episode>", "Delete an episode, keeping its entries", "Deleted", func(*cobra.Command) func(domain.LogDocument, string) (domain.LogDocument, error) {
			return func(d domain.LogDocument, id string) (domain.LogDocument, error) {
				return domain.DeleteEpisode(d, id, a.now())
			}
		}),
		newEpisodeListCmd(a),
	)
	return cmd
}

func newEpisodeStartCmd(a *app) *cobra.Command {
	var in struct {
		member, category, notes, at string
		severity                    int
	}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new episode for a member",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.updateLog(cmd, func(snap docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				memberID, err := resolveMember(snap, in.member)
				if err != nil {
					return d, "", err
				}
				started, err := parseWhen(in.at, a.now())
				if err != nil {
					return d, "", err
				}
				out, ep, err := domain.StartEpisode(d, domain.EpisodeInput{
					MemberID:  memberID,
					Category:  in.category,
					Severity:  in.severity,
					Notes:     in.notes,
					StartedAt: started,
				}, a.now())
				return out, "Started episode " + shortID(ep.ID), err
			})
		},
	}
	cmd.Flags().StringVarP(&in.member, "member", "m", "", "member id, name or slot number")
	cmd.Flags().StringVarP(&in.category, "category", "c", "", "what kind of illness")
	cmd.Flags().IntVarP(&in.severity, "severity", "s", 0, "severity 1-5 (default 3)")
	cmd.Flags().StringVar(&in.notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&in.at, "at", "", "when it started (default now)")
	return cmd
}

func newEpisodeEditCmd(a *app) *cobra.Command {
	var category, notes, started string
	var severity int
	cmd := &cobra.Command{
		Use:   "edit <episode>",
		Short: "Change an episode's details",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.EpisodePatch
			if cmd.Flags().Changed("category") {
				patch.Category = &category
			}
			if cmd.Flags().Changed("severity") {
				patch.Severity = &severity
			}
			if cmd.Flags().Changed("notes") {
				patch.Notes = &notes
			}
			if cmd.Flags().Changed("started") {
				at, err := parseWhen(started, a.now())
				if err != nil {
					return err
				}
				iso := domain.FormatISO(at)
				patch.StartedAtISO = &iso
			}
			return a.updateLog(cmd, func(_ docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				id, err := resolveID(args[0], ids(d.Episodes))
				if err != nil {
					return d, "", err
				}
				out, err := domain.UpdateEpisode(d, id, patch, a.now())
				return out, "Updated episode " + shortID(id), err
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "what kind of illness")
	cmd.Flags().IntVarP(&severity, "severity", "s", 0, "severity 1-5")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&started, "started", "", "when it started")
	return cmd
}

func episodeIDCmd(a *app, use, short, verb string, build func(*cobra.Command) func(domain.LogDocument, string) (domain.LogDocument, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		apply := build(cmd)
		return a.updateLog(cmd, func(_ docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
			id, err := resolveID(args[0], ids(d.Episodes))
			if err != nil {
				return d, "", err
			}
			out, err := apply(d, id)
			return out, verb + " episode " + shortID(id), err
		})
	}
	return cmd
}

func newEpisodeListCmd(a *app) *cobra.Command {
	var member string
	var ongoing bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List episodes, newest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := requireLog(snap); err != nil {
				return err
			}
			memberID, err := optionalMember(snap, member)
			if err != nil {
				return err
			}
			episodes := snap.Log.ActiveEpisodes(memberID)
			if ongoing {
				episodes = snap.Log.OngoingEpisodes(memberID)
			}
			st := newStyles(a.stdout)
			for _, e := range episodes {
				state := "ongoing"
				if e.EndedAtISO != nil {
					state = "ended " + st.when(*e.EndedAtISO)
				}
				a.printf("%s  %s  %s  severity %d  %s  %s\n", shortID(e.ID), st.memberName(snap.Household, e.MemberID),
					e.Category, e.Severity, st.when(e.StartedAtISO), st.muted.Render(state))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&member, "member", "m", "", "only this member")
	cmd.Flags().BoolVar(&ongoing, "ongoing", false, "only episodes that have not ended")
	return cmd
}
