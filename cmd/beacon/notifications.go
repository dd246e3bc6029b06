package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusbeacon/beacon/internal/campus"
	"github.com/campusbeacon/beacon/internal/model"
	"github.com/campusbeacon/beacon/internal/notifications"
	"github.com/campusbeacon/beacon/internal/slice"
)

func newNotificationsCmd(c *cli) *cobra.Command {
	cmd := newResourceCmd(c, resource[model.Notification]{
		name:    "notifications",
		short:   "Read and manage notifications",
		slice:   func(s *campus.Store) *slice.Slice[model.Notification, model.ID] { return s.Notifications.Slice },
		aliases: []string{"inbox"},
	})

	unread := &cobra.Command{
		Use:   "unread",
		Short: "Print the unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			n := c.store.Notifications
			count, err := n.FetchUnreadCount(cmd.Context())
			if err != nil {
				return sliceError(n.State().Error, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			item, err := c.store.Notifications.MarkAsRead(cmd.Context(), id)
			if err != nil {
				return reported(err)
			}
			return c.print(cmd, item)
		},
	}

	readAll := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			n := c.store.Notifications
			if err := n.MarkAllAsRead(cmd.Context()); err != nil {
				return reported(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unread: %d\n", n.State().Counter(notifications.UnreadCounter))
			return nil
		},
	}

	cmd.AddCommand(unread, read, readAll)
	return cmd
}
