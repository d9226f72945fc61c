package main

import (
	"github.com/spf13/cobra"

	"healthlog/internal/docsync"
	"healthlog/pkg/domain"
)

// resolveMember maps a member reference (id, name or slot number) to an id.
// Without a household the reference is used as the id.
func resolveMember(snap docsync.Snapshot, ref string) (string, error) {
	if ref == "" {
		return "", usagef("--member is required")
	}
	if !snap.HasHousehold {
		return ref, nil
	}
	m, ok := snap.Household.ResolveMember(ref)
	if !ok {
		return "", domain.ErrNotFound{Entity: domain.EntityMember, ID: ref}
	}
	return m.ID, nil
}

// optionalMember is resolveMember for list filters, where empty means everyone.
func optionalMember(snap docsync.Snapshot, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return resolveMember(snap, ref)
}

func newMembersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List and edit household members",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the household members",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				snap, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				if !snap.HasHousehold {
					return docsync.ErrNoDocument
				}
				st := newStyles(a.stdout)
				for i, m := range snap.Household.Members {
					a.printf("%d  %-9s %s  %s\n", i+1, m.ID, st.member(m), st.muted.Render(m.AccentColor))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <member> <name>",
			Short: "Change a member's display name",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.editMember(cmd, args[0], func(h domain.Household, id string) (domain.Household, error) {
					return domain.RenameMember(h, id, args[1], a.now())
				})
			},
		},
		&cobra.Command{
			Use:   "color <member> <#rrggbb>",
			Short: "Change a member's accent colour",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.editMember(cmd, args[0], func(h domain.Household, id string) (domain.Household, error) {
					return domain.SetMemberColor(h, id, args[1], a.now())
				})
			},
		},
	)
	return cmd
}

func (a *app) editMember(cmd *cobra.Command, ref string, edit func(domain.Household, string) (domain.Household, error)) error {
	snap, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	if !snap.HasHousehold {
		return docsync.ErrNoDocument
	}
	id, err := resolveMember(snap, ref)
	if err != nil {
		return err
	}
	merged, err := a.ws.UpdateHousehold(cmd.Context(), func(h domain.Household) (domain.Household, error) {
		return edit(h, id)
	})
	if err != nil {
		return err
	}
	a.saved("Saved "+id, merged)
	return nil
}
