package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
)

func InboxCmd() *cobra.Command {
	var tags []string
	var note string
	cmd := &cobra.Command{
		Use:   "inbox [text...]",
		Short: "List inbox items, or add one",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("inbox", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				title := strings.TrimSpace(strings.Join(args, " "))
				if title == "" {
					return fmt.Errorf("empty inbox item")
				}
				var body []string
				if note != "" {
					body = strings.Split(note, "\n")
				}
				return withLock(p, func() error {
					if p.Inbox == nil {
						p.Inbox = &model.Inbox{HeaderLines: []string{"# Inbox", ""}}
					}
					ops.AddInboxItem(p.Inbox, title, tags, body)
					if err := p.SaveInbox(); err != nil {
						return err
					}
					fmt.Fprintf(out, "added to inbox: %s\n", title)
					return nil
				})
			}

			var items []*model.InboxItem
			if p.Inbox != nil {
				items = p.Inbox.Items
			}

			if jsonEnabled(cmd) {
				payload := []inboxItemJSON{}
				for i, item := range items {
					payload = append(payload, inboxItemJSON{
						Index: i + 1,
						Title: item.Title,
						Tags:  item.Tags,
						Body:  item.Body,
					})
				}
				return writeJSON(cmd, payload)
			}

			if len(items) == 0 {
				fmt.Fprintln(out, "(inbox is empty)")
				return nil
			}
			for i, item := range items {
				line := fmt.Sprintf("%3d  %s", i+1, item.Title)
				for _, tag := range item.Tags {
					line += " #" + tag
				}
				fmt.Fprintln(out, line)
				for _, bodyLine := range item.Body {
					fmt.Fprintf(out, "     %s\n", bodyLine)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Tag for the new item (repeatable)")
	cmd.Flags().StringVar(&note, "note", "", "Body text for the new item")
	return cmd
}

func TriageCmd() *cobra.Command {
	var trackArg, after string
	var top, bottom bool
	cmd := &cobra.Command{
		Use:   "triage <n>",
		Short: "Move an inbox item onto a track as a task",
		Args:  wrapArgs("triage", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("triage", err)
				}
			}()
			index, err := strconv.Atoi(args[0])
			if err != nil || index < 1 {
				return fmt.Errorf("invalid inbox index %q", args[0])
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			if p.Inbox == nil || index > len(p.Inbox.Items) {
				return fmt.Errorf("inbox item %d not found", index)
			}
			track, trackID, err := requireTrack(p, trackArg)
			if err != nil {
				return err
			}
			pos := insertPosition(top, after)
			if bottom {
				pos = ops.AtBottom()
			}
			return withLock(p, func() error {
				newID, err := ops.Triage(p.Inbox, index-1, track, pos, p.Prefix(trackID))
				if err != nil {
					return err
				}
				if err := p.SaveInbox(); err != nil {
					return err
				}
				if err := p.SaveTrack(trackID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", newID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&trackArg, "track", "", "Target track")
	cmd.Flags().BoolVar(&top, "top", false, "Insert at the top of the backlog")
	cmd.Flags().BoolVar(&bottom, "bottom", false, "Insert at the bottom of the backlog")
	cmd.Flags().StringVar(&after, "after", "", "Insert after the given task ID")
	return cmd
}
