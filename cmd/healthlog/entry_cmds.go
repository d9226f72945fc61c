package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"healthlog/internal/docsync"
	"healthlog/pkg/domain"
)

// entryFlags are shared by every command that records an entry.
type entryFlags struct {
	member  string
	episode string
	at      string
	notes   string
}

func (f *entryFlags) register(cmd *cobra.Command, atHelp string) {
	cmd.Flags().StringVarP(&f.member, "member", "m", "", "member id, name or slot number (default: the episode's member)")
	cmd.Flags().StringVarP(&f.episode, "episode", "e", "", "link to this episode")
	cmd.Flags().StringVar(&f.at, "at", "", atHelp)
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
}

func (a *app) entryRef(snap docsync.Snapshot, d domain.LogDocument, f entryFlags) (domain.EntryRef, error) {
	var ref domain.EntryRef
	if f.member != "" || f.episode == "" {
		id, err := resolveMember(snap, f.member)
		if err != nil {
			return ref, err
		}
		ref.MemberID = id
	}
	if f.episode != "" {
		id, err := resolveID(f.episode, ids(d.Episodes))
		if err != nil {
			return ref, err
		}
		ref.EpisodeID = id
	}
	at, err := parseWhen(f.at, a.now())
	if err != nil {
		return ref, err
	}
	ref.At = at
	ref.Notes = f.notes
	return ref, nil
}

// entryCmds bundles the list and delete subcommands shared by entry kinds.
func entryCmds[T domain.Record](a *app, noun string, live func(domain.LogDocument, string) []T, all func(domain.LogDocument) []T,
	remove func(domain.LogDocument, string, time.Time) (domain.LogDocument, error), line func(styles, domain.Household, T) string) []*cobra.Command {
	var member string
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + noun + " entries, newest first",
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
			st := newStyles(a.stdout)
			for _, it := range live(snap.Log, memberID) {
				a.printf("%s  %s\n", shortID(it.RecordID()), line(st, snap.Household, it))
			}
			return nil
		},
	}
	list.Flags().StringVarP(&member, "member", "m", "", "only this member")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun + " entry",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateLog(cmd, func(_ docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				id, err := resolveID(args[0], ids(all(d)))
				if err != nil {
					return d, "", err
				}
				out, err := remove(d, id, a.now())
				return out, "Deleted " + noun + " " + shortID(id), err
			})
		},
	}
	return []*cobra.Command{list, del}
}

func newTempCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "temp",
		Short: "Record body temperatures",
	}
	var f entryFlags
	add := &cobra.Command{
		Use:   "add <celsius>",
		Short: "Record a temperature reading",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tempC, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(args[0]), "C"), 64)
			if err != nil {
				return usagef("temperature %q is not a number", args[0])
			}
			return a.updateLog(cmd, func(snap docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				ref, err := a.entryRef(snap, d, f)
				if err != nil {
					return d, "", err
				}
				out, e, err := domain.AddTemp(d, ref, tempC, a.now())
				return out, "Recorded " + formatTemp(e.TempC), err
			})
		},
	}
	f.register(add, "when it was taken (default now)")
	cmd.AddCommand(add)
	cmd.AddCommand(entryCmds(a, "temperature",
		domain.LogDocument.ActiveTemps,
		func(d domain.LogDocument) []domain.TempEntry { return d.Temps },
		domain.DeleteTemp,
		func(st styles, h domain.Household, t domain.TempEntry) string {
			return st.memberName(h, t.MemberID) + "  " + formatTemp(t.TempC) + "  " + st.when(t.AtISO)
		})...)
	return cmd
}

func newMedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "med",
		Short: "Record medication doses",
	}
	var f entryFlags
	var dose string
	add := &cobra.Command{
		Use:   "add <medication>",
		Short: "Record a dose that was given",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return a.updateLog(cmd, func(snap docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				ref, err := a.entryRef(snap, d, f)
				if err != nil {
					return d, "", err
				}
				out, e, err := domain.AddMed(d, ref, name, dose, a.now())
				return out, "Recorded " + e.MedName, err
			})
		},
	}
	f.register(add, "when it was given (default now)")
	add.Flags().StringVarP(&dose, "dose", "d", "", "amount given, e.g. 5ml")
	cmd.AddCommand(add)
	cmd.AddCommand(entryCmds(a, "dose",
		domain.LogDocument.ActiveMeds,
		func(d domain.LogDocument) []domain.MedEntry { return d.Meds },
		domain.DeleteMed,
		func(st styles, h domain.Household, m domain.MedEntry) string {
			return strings.TrimSpace(st.memberName(h, m.MemberID) + "  " + m.MedName + " " + m.Dose + "  " + st.when(m.AtISO))
		})...)
	return cmd
}

func newSymptomCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptom",
		Short: "Record observed symptoms",
	}
	var f entryFlags
	add := &cobra.Command{
		Use:   "add <symptom>...",
		Short: "Record one or more symptoms",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateLog(cmd, func(snap docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				ref, err := a.entryRef(snap, d, f)
				if err != nil {
					return d, "", err
				}
				out, e, err := domain.AddSymptom(d, ref, args, a.now())
				return out, "Recorded " + strings.Join(e.Symptoms, ", "), err
			})
		},
	}
	f.register(add, "when they were observed (default now)")
	cmd.AddCommand(add)
	cmd.AddCommand(entryCmds(a, "symptom",
		domain.LogDocument.ActiveSymptoms,
		func(d domain.LogDocument) []domain.SymptomEntry { return d.Symptoms },
		domain.DeleteSymptom,
		func(st styles, h domain.Household, s domain.SymptomEntry) string {
			return st.memberName(h, s.MemberID) + "  " + strings.Join(s.Symptoms, ", ") + "  " + st.when(s.AtISO)
		})...)
	return cmd
}
