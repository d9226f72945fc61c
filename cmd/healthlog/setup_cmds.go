package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"healthlog/internal/docstore"
	"healthlog/internal/docsync"
)

func newInitCmd(a *app) *cobra.Command {
	var folder, household, logHandle string
	var pick bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or attach the household documents",
		Long: `Create a new household and health log, or attach this device to documents
another device already shares.

  healthlog init --folder family             # create family/household.json and family/health-log.json
  healthlog init --household family/household.json --log family/health-log.json
  healthlog init --pick --interactive        # choose existing files from the store

Existing files are never overwritten; a new name is chosen when one is taken.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if pick {
				hh, err := a.adapter.PickExistingFile(ctx)
				if err != nil {
					return err
				}
				lg, err := a.adapter.PickExistingFile(ctx)
				if err != nil {
					return err
				}
				household, logHandle = string(hh), string(lg)
			}
			if household != "" || logHandle != "" {
				if household != "" {
					if err := a.ws.AttachHousehold(ctx, docstore.Handle(household)); err != nil {
						return err
					}
					a.printf("Attached household %s\n", household)
				}
				if logHandle != "" {
					if err := a.ws.AttachLog(ctx, docstore.Handle(logHandle)); err != nil {
						return err
					}
					a.printf("Attached log %s\n", logHandle)
				}
				return nil
			}

			if !cmd.Flags().Changed("folder") {
				folder = a.cfg.Folder
				if a.flags.interactive {
					picked, err := a.adapter.PickFolder(ctx)
					if err != nil {
						return err
					}
					folder = string(picked)
				}
			}
			if err := a.ws.Bootstrap(ctx, docstore.Handle(folder)); err != nil {
				return err
			}
			snap := a.ws.Snapshot()
			where := folder
			if where == "" {
				where = "the store root"
			}
			a.printf("Created %s and %s in %s\n", snap.HouseholdName, snap.LogName, where)
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "folder to create the documents in")
	cmd.Flags().StringVar(&household, "household", "", "attach an existing household document")
	cmd.Flags().StringVar(&logHandle, "log", "", "attach an existing health log document")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose existing documents with the picker")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the attached documents and who is ill",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := newStyles(a.stdout)
			if snap.Identity.EmailAddress != "" {
				a.printf("Signed in as %s\n", snap.Identity.EmailAddress)
			}
			a.printf("%s %s\n", st.heading.Render("Household:"), orNone(snap.HasHousehold, snap.HouseholdName))
			a.printf("%s %s\n", st.heading.Render("Log:"), orNone(snap.HasLog, snap.LogName))
			a.printf("Last synced %s\n", ago(a.now(), snap.LastSyncedAt))
			if !snap.HasHousehold || !snap.HasLog {
				return nil
			}
			for _, m := range snap.Household.Members {
				ongoing := snap.Log.OngoingEpisodes(m.ID)
				if len(ongoing) == 0 {
					a.printf("  %s  %s\n", st.member(m), st.muted.Render("well"))
					continue
				}
				line := fmt.Sprintf("%d ongoing episode(s)", len(ongoing))
				if temps := snap.Log.ActiveTemps(m.ID); len(temps) > 0 {
					line += ", last temp " + formatTemp(temps[0].TempC)
				}
				a.printf("  %s  %s\n", st.member(m), st.warn.Render(line))
			}
			return nil
		},
	}
}

func orNone(ok bool, name string) string {
	if !ok {
		return "(none)"
	}
	return name
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the latest version of the shared documents",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.ws.Refresh(cmd.Context()); err != nil {
				return err
			}
			snap := a.ws.Snapshot()
			a.printf("Synced %s and %s\n", orNone(snap.HasHousehold, snap.HouseholdName), orNone(snap.HasLog, snap.LogName))
			return nil
		},
	}
}

func newForgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Detach this device from the shared documents",
		Long:  "Forget which documents this device uses. The shared files themselves are left untouched.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ws.Forget(cmd.Context()); err != nil {
				return err
			}
			a.printf("This device no longer tracks any household documents.\n")
			return nil
		},
	}
}

// requireLog fails with ErrNoDocument when no log is attached.
func requireLog(snap docsync.Snapshot) error {
	if !snap.HasLog {
		return docsync.ErrNoDocument
	}
	return nil
}
