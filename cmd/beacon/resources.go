package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/campusbeacon/beacon/internal/campus"
	"github.com/campusbeacon/beacon/internal/model"
	"github.com/campusbeacon/beacon/internal/slice"
)

// resource describes one collection exposed as a command group.
type resource[T model.Entity[model.ID]] struct {
	name  string
	short string
	slice func(*campus.Store) *slice.Slice[T, model.ID]
	// form turns parsed fields into the request body. JSON is used when nil.
	form    func(cmd *cobra.Command, fields map[string]any) (any, error)
	extend  func(c *cli, cmd *cobra.Command)
	aliases []string
}

func clubsResource() resource[model.Club] {
	return resource[model.Club]{
		name:  "clubs",
		short: "Manage clubs",
		slice: func(s *campus.Store) *slice.Slice[model.Club, model.ID] { return s.Clubs },
		extend: func(c *cli, cmd *cobra.Command) {
			cmd.AddCommand(newClubNamesCmd(c))
		},
		aliases: []string{"club"},
	}
}

func coordinatorsResource() resource[model.Coordinator] {
	return resource[model.Coordinator]{
		name:    "coordinators",
		short:   "Manage club coordinators",
		slice:   func(s *campus.Store) *slice.Slice[model.Coordinator, model.ID] { return s.Coordinators },
		aliases: []string{"coordinator"},
	}
}

func eventsResource() resource[model.Event] {
	return resource[model.Event]{
		name:    "events",
		short:   "Manage club events",
		slice:   func(s *campus.Store) *slice.Slice[model.Event, model.ID] { return s.Events },
		aliases: []string{"event"},
	}
}

func contactsResource() resource[model.Contact] {
	return resource[model.Contact]{
		name:    "contacts",
		short:   "Manage the campus directory",
		slice:   func(s *campus.Store) *slice.Slice[model.Contact, model.ID] { return s.Contacts },
		aliases: []string{"contact"},
	}
}

func usersResource() resource[model.User] {
	return resource[model.User]{
		name:    "users",
		short:   "Manage accounts (admin only)",
		slice:   func(s *campus.Store) *slice.Slice[model.User, model.ID] { return s.Users },
		aliases: []string{"user"},
	}
}

func marketplaceResource() resource[model.MarketplaceItem] {
	return resource[model.MarketplaceItem]{
		name:    "marketplace",
		short:   "Manage marketplace listings",
		slice:   func(s *campus.Store) *slice.Slice[model.MarketplaceItem, model.ID] { return s.Marketplace },
		form:    marketplaceForm,
		aliases: []string{"listings"},
	}
}

func newResourceCmd[T model.Entity[model.ID]](c *cli, r resource[T]) *cobra.Command {
	group := &cobra.Command{
		Use:     r.name,
		Short:   r.short,
		Aliases: r.aliases,
	}

	var filters []string
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + r.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseFilters(filters)
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			s := r.slice(c.store)
			if _, err := s.FetchList(cmd.Context(), query); err != nil {
				return sliceError(s.State().Error, err)
			}
			return c.print(cmd, s.State().Items)
		},
	}
	list.Flags().StringArrayVar(&filters, "filter", nil, "query filter as key=value (repeatable)")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			s := r.slice(c.store)
			item, err := s.FetchOne(cmd.Context(), id)
			if err != nil {
				return sliceError(s.State().Error, err)
			}
			return c.print(cmd, item)
		},
	}

	var in payloadFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a record from --set pairs and/or --file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := r.body(cmd, in)
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			s := r.slice(c.store)
			item, err := s.Create(cmd.Context(), body)
			if err != nil {
				return reported(err)
			}
			return c.print(cmd, item)
		},
	}
	in.register(create)

	var upd payloadFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a record from --set pairs and/or --file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			body, err := r.body(cmd, upd)
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			s := r.slice(c.store)
			item, err := s.Update(cmd.Context(), id, body)
			if err != nil {
				return reported(err)
			}
			return c.print(cmd, item)
		},
	}
	upd.register(update)

	del := &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a record",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			if err := r.slice(c.store).Delete(cmd.Context(), id); err != nil {
				return reported(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", r.name, id)
			return nil
		},
	}

	if r.form != nil {
		create.Flags().StringArray("image", nil, "attach an image file (repeatable)")
		update.Flags().StringArray("image", nil, "attach an image file (repeatable)")
	}

	group.AddCommand(list, get, create, update, del)
	if r.extend != nil {
		r.extend(c, group)
	}
	return group
}

func (r resource[T]) body(cmd *cobra.Command, in payloadFlags) (any, error) {
	fields, err := in.fields()
	if err != nil {
		return nil, err
	}
	if r.form != nil {
		return r.form(cmd, fields)
	}
	if len(fields) == 0 {
		return nil, errNoFields
	}
	return fields, nil
}

func parseID(raw string) (model.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func newClubNamesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "names <id>...",
		Short: "Resolve club ids to display names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]model.ID, 0, len(args))
			for _, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			names, err := c.store.ClubNames.Names(cmd.Context(), ids)
			if err != nil {
				return err
			}
			return c.print(cmd, names)
		},
	}
}
