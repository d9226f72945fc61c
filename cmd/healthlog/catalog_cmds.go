package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"healthlog/internal/docsync"
	"healthlog/internal/schedule"
	"healthlog/pkg/domain"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the medication catalog",
	}
	var off bool
	favorite := &cobra.Command{
		Use:   "favorite <medication>",
		Short: "Pin a medication to the top of the catalog",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return a.updateLog(cmd, func(_ docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				item, ok := d.FindCatalogItemByName(name)
				if !ok {
					return d, "", domain.ErrNotFound{Entity: domain.EntityCatalogItem, ID: name}
				}
				out, err := domain.SetFavorite(d, item.ID, !off, a.now())
				if off {
					return out, "Unpinned " + item.Name, err
				}
				return out, "Pinned " + item.Name, err
			})
		},
	}
	favorite.Flags().BoolVar(&off, "off", false, "unpin instead")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <medication>",
			Short: "Add a medication to the catalog",
			Args:  minArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := strings.Join(args, " ")
				return a.updateLog(cmd, func(_ docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
					out, item, err := domain.UpsertCatalogItem(d, name, a.now())
					return out, "Catalog has " + item.Name, err
				})
			},
		},
		favorite,
		&cobra.Command{
			Use:   "list",
			Short: "List catalog medications, favourites first",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				snap, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				if err := requireLog(snap); err != nil {
					return err
				}
				for _, item := range snap.Log.CatalogSorted() {
					star := " "
					if item.IsFavorite {
						star = "*"
					}
					a.printf("%s %s\n", star, item.Name)
				}
				return nil
			},
		},
	)
	return cmd
}

func newCourseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Plan repeating medication courses",
	}
	var f entryFlags
	var dose string
	var every, days float64
	add := &cobra.Command{
		Use:   "add <medication>",
		Short: "Plan a course of doses",
		Long: `Plan a course: the first dose at --at, then one every --every hours for
--days days.

  healthlog course add ibuprofen --member 2 --dose 5ml --every 8 --days 3`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return a.updateLog(cmd, func(snap docsync.Snapshot, d domain.LogDocument) (domain.LogDocument, string, error) {
				ref, err := a.entryRef(snap, d, f)
				if err != nil {
					return d, "", err
				}
				out, c, err := domain.AddMedCourse(d, domain.CourseInput{
					EntryRef:      ref,
					MedName:       name,
					Dose:          dose,
					IntervalHours: every,
					DurationDays:  days,
				}, a.now())
				return out, fmt.Sprintf("Planned %d doses of %s", len(schedule.ForCourse(c)), c.MedName), err
			})
		},
	}
	f.register(add, "first dose (default now)")
	add.Flags().StringVarP(&dose, "dose", "d", "", "amount per dose")
	add.Flags().Float64Var(&every, "every", 0, "hours between doses")
	add.Flags().Float64Var(&days, "days", 0, "length of the course in days")
	cmd.AddCommand(add)
	cmd.AddCommand(entryCmds(a, "course",
		domain.LogDocument.ActiveCourses,
		func(d domain.LogDocument) []domain.MedCourse { return d.MedCourses },
		domain.DeleteMedCourse,
		func(st styles, h domain.Household, c domain.MedCourse) string {
			return fmt.Sprintf("%s  %s %s every %gh for %gd from %s", st.memberName(h, c.MemberID), c.MedName, c.Dose,
				c.IntervalHours, c.DurationDays, st.when(c.StartAtISO))
		})...)
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var member string
	var limit int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the next planned doses",
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
			doses := schedule.Upcoming(snap.Log, memberID, a.now(), limit)
			if len(doses) == 0 {
				a.printf("No doses planned.\n")
				return nil
			}
			st := newStyles(a.stdout)
			for _, d := range doses {
				a.printf("%s  %s  %s %s\n", st.when(domain.FormatISO(d.At)), st.memberName(snap.Household, d.MemberID),
					d.MedName, d.Dose)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&member, "member", "m", "", "only this member")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "how many doses to show")
	return cmd
}
