package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var bootstrap bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Sign in with the configured credentials and show the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Email == "" {
				return errors.New("no credentials configured: set --email/--password or BEACON_EMAIL/BEACON_PASSWORD")
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			user, _ := c.store.User()
			if !bootstrap {
				return c.print(cmd, user)
			}
			if err := c.store.Bootstrap(cmd.Context()); err != nil {
				return err
			}
			return c.print(cmd, summary(c))
		},
	}
	cmd.Flags().BoolVar(&bootstrap, "summary", false, "also load every collection and print their sizes")
	return cmd
}

type accountSummary struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	Clubs        int    `json:"clubs"`
	Coordinators int    `json:"coordinators"`
	Events       int    `json:"events"`
	Contacts     int    `json:"contacts"`
	Marketplace  int    `json:"marketplace"`
	Users        int    `json:"users,omitempty"`
	Unread       int    `json:"unread"`
}

func summary(c *cli) accountSummary {
	user, _ := c.store.User()
	s := c.store
	return accountSummary{
		Email:        user.Email,
		Role:         user.Role,
		Clubs:        len(s.Clubs.State().Items),
		Coordinators: len(s.Coordinators.State().Items),
		Events:       len(s.Events.State().Items),
		Contacts:     len(s.Contacts.State().Items),
		Marketplace:  len(s.Marketplace.State().Items),
		Users:        len(s.Users.State().Items),
		Unread:       s.Notifications.UnreadCount(),
	}
}
