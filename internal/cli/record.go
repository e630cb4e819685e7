package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vodoo/vodoo/internal/odoo"
	"github.com/vodoo/vodoo/internal/records"
	"github.com/vodoo/vodoo/internal/ui"
)

// modelAliases maps the short names used on the command line to server
// models. A raw model name (anything containing a dot) is passed through.
var modelAliases = map[string]string{
	"task":    "project.task",
	"ticket":  "helpdesk.ticket",
	"project": "project.project",
	"lead":    "crm.lead",
	"article": "knowledge.article",
	"partner": "res.partner",
	"user":    "res.users",
}

// tagModels maps record models to the tag model their tag field references.
var tagModels = map[string]string{
	"project.task":    "project.tags",
	"helpdesk.ticket": "helpdesk.tag",
	"crm.lead":        "crm.tag",
}

func resolveModel(arg string) (string, error) {
	if m, ok := modelAliases[arg]; ok {
		return m, nil
	}
	if strings.Contains(arg, ".") {
		return arg, nil
	}
	return "", fmt.Errorf("unknown model %q (use an alias like task/ticket or a full model name)", arg)
}

var (
	recordFields  string
	recordDomain  string
	recordValues  string
	recordLimit   int
	recordOffset  int
	recordOrder   string
	recordUser    int
	recordName    string
	recordOutput  string
	recordDir     string
	recordExt     string
	recordArgs    string
	recordKwargs  string
	messagesLimit int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Read and write records on any model",
}

var recordListCmd = &cobra.Command{
	Use:   "list <model>",
	Short: "Search and list records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := resolveModel(args[0])
		if err != nil {
			return err
		}
		domain, err := parseDomain(recordDomain)
		if err != nil {
			return err
		}
		fields := splitFields(recordFields)
		if len(fields) == 0 {
			fields = []string{"display_name"}
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		recs, err := records.NewService(s.client).List(cmd.Context(), model, domain, records.ListOptions{
			Fields: fields,
			Limit:  recordLimit,
			Offset: recordOffset,
			Order:  recordOrder,
		})
		if err != nil {
			return err
		}
		return printRecordList(recs, fields)
	},
}

var recordGetCmd = &cobra.Command{
	Use:   "get <model> <id>",
	Short: "Read one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		rec, err := records.NewService(s.client).Get(cmd.Context(), model, id, splitFields(recordFields))
		if err != nil {
			return err
		}
		return printRecord(rec)
	},
}

var recordCreateCmd = &cobra.Command{
	Use:   "create <model>",
	Short: "Create a record from --values JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := resolveModel(args[0])
		if err != nil {
			return err
		}
		values, err := parseValues(recordValues)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		svc := records.NewService(s.client)
		id, err := svc.Create(cmd.Context(), model, values)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]any{"id": id, "url": svc.URL(model, id)})
		}
		fmt.Printf("Created %s %d\n%s\n", model, id, svc.URL(model, id))
		return nil
	},
}

var recordSetCmd = &cobra.Command{
	Use:   "set <model> <id>",
	Short: "Update a record from --values JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}
		values, err := parseValues(recordValues)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if _, err := records.NewService(s.client).Set(cmd.Context(), model, id, values); err != nil {
			return err
		}
		fmt.Printf("Updated %s %d\n", model, id)
		return nil
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <model> <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if _, err := records.NewService(s.client).Delete(cmd.Context(), model, id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s %d\n", model, id)
		return nil
	},
}

var recordFieldsCmd = &cobra.Command{
	Use:   "fields <model>",
	Short: "Show the fields a model defines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := resolveModel(args[0])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		fields, err := records.NewService(s.client).Fields(cmd.Context(), model)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(fields)
		}

		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			attrs, _ := fields[name].(map[string]any)
			rows = append(rows, []string{
				name,
				odoo.Record(attrs).Str("type"),
				odoo.Record(attrs).Str("string"),
			})
		}
		fmt.Println(ui.Columns(styles(), []string{"Field", "Type", "Label"}, rows))
		return nil
	},
}

var recordURLCmd = &cobra.Command{
	Use:   "url <model> <id>",
	Short: "Print the web URL of a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		url := records.NewService(s.client).URL(model, id)
		if jsonOutput {
			return outputJSON(map[string]any{"url": url})
		}
		fmt.Println(url)
		return nil
	},
}

var recordCallCmd = &cobra.Command{
	Use:   "call <model> <method>",
	Short: "Call an arbitrary model method",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := resolveModel(args[0])
		if err != nil {
			return err
		}
		var callArgs []any
		if recordArgs != "" {
			if err := json.Unmarshal([]byte(recordArgs), &callArgs); err != nil {
				return fmt.Errorf("invalid --args JSON: %w", err)
			}
		}
		var kwargs map[string]any
		if recordKwargs != "" {
			if err := json.Unmarshal([]byte(recordKwargs), &kwargs); err != nil {
				return fmt.Errorf("invalid --kwargs JSON: %w", err)
			}
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		result, err := records.NewService(s.client).Call(cmd.Context(), model, args[1], callArgs, kwargs)
		if err != nil {
			return err
		}
		return outputJSON(result)
	},
}

var recordSearchCmd = &cobra.Command{
	Use:   "search <model> <query>",
	Short: "Fuzzy-search records by name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := resolveModel(args[0])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		matches, err := s.client.NameSearch(cmd.Context(), model, args[1], nil, recordLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(matches)
		}
		rows := make([][]string, 0, len(matches))
		for _, m := range matches {
			rows = append(rows, []string{strconv.Itoa(m.ID), m.Name})
		}
		fmt.Println(ui.Columns(styles(), []string{"ID", "Name"}, rows))
		return nil
	},
}

var recordCommentCmd = &cobra.Command{
	Use:   "comment <model> <id> <message>",
	Short: "Post a public comment on a record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postMessage(cmd, args, false)
	},
}

var recordNoteCmd = &cobra.Command{
	Use:   "note <model> <id> <message>",
	Short: "Post an internal note on a record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postMessage(cmd, args, true)
	},
}

var recordMessagesCmd = &cobra.Command{
	Use:   "messages <model> <id>",
	Short: "List messages posted on a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		msgs, err := records.NewService(s.client).ListMessages(cmd.Context(), model, id, messagesLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(msgs)
		}
		rows := make([][]string, 0, len(msgs))
		for _, m := range msgs {
			_, author, _ := m.Many2One("author_id")
			rows = append(rows, []string{m.Str("date"), author, m.Str("body")})
		}
		fmt.Println(ui.Columns(styles(), []string{"Date", "Author", "Body"}, rows))
		return nil
	},
}

var recordTagsCmd = &cobra.Command{
	Use:   "tags <model>",
	Short: "List the tags available for a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := resolveModel(args[0])
		if err != nil {
			return err
		}
		tagModel, ok := tagModels[model]
		if !ok {
			return fmt.Errorf("model %s has no tag model", model)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		tags, err := records.NewService(s.client).ListTags(cmd.Context(), tagModel)
		if err != nil {
			return err
		}
		return printRecordList(tags, []string{"name"})
	},
}

var recordTagCmd = &cobra.Command{
	Use:   "tag <model> <id> <tag-id>",
	Short: "Add a tag to a record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}
		tagID, err := parseID(args[2])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if _, err := records.NewService(s.client).AddTag(cmd.Context(), model, id, tagID); err != nil {
			return err
		}
		fmt.Printf("Tagged %s %d with tag %d\n", model, id, tagID)
		return nil
	},
}

var recordAttachCmd = &cobra.Command{
	Use:   "attach <model> <id> <file>",
	Short: "Upload a file as a record attachment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		attID, err := records.NewService(s.client).Attach(cmd.Context(), model, id, args[2], recordName)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]any{"attachment_id": attID})
		}
		fmt.Printf("Attached %s as attachment %d\n", args[2], attID)
		return nil
	},
}

var recordAttachmentsCmd = &cobra.Command{
	Use:   "attachments <model> <id>",
	Short: "List the attachments on a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		atts, err := records.NewService(s.client).ListAttachments(cmd.Context(), model, id)
		if err != nil {
			return err
		}
		return printRecordList(atts, []string{"name", "mimetype", "file_size"})
	},
}

var recordDownloadCmd = &cobra.Command{
	Use:   "download <attachment-id>",
	Short: "Download one attachment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		path, err := records.NewService(s.client).DownloadAttachment(cmd.Context(), id, recordOutput)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var recordDownloadAllCmd = &cobra.Command{
	Use:   "download-all <model> <id>",
	Short: "Download every attachment on a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, id, err := modelAndID(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		paths, err := records.NewService(s.client).DownloadRecordAttachments(cmd.Context(), model, id, recordDir, recordExt)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]any{"files": paths})
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	recordListCmd.Flags().StringVar(&recordDomain, "domain", "", "search domain as JSON")
	recordListCmd.Flags().StringVar(&recordFields, "fields", "", "comma-separated fields to read")
	recordListCmd.Flags().IntVar(&recordLimit, "limit", 0, "maximum records to return")
	recordListCmd.Flags().IntVar(&recordOffset, "offset", 0, "records to skip")
	recordListCmd.Flags().StringVar(&recordOrder, "order", "", "sort order, e.g. \"name asc\"")

	recordGetCmd.Flags().StringVar(&recordFields, "fields", "", "comma-separated fields to read")
	recordCreateCmd.Flags().StringVar(&recordValues, "values", "", "field values as JSON")
	recordSetCmd.Flags().StringVar(&recordValues, "values", "", "field values as JSON")

	recordCallCmd.Flags().StringVar(&recordArgs, "args", "", "positional arguments as JSON")
	recordCallCmd.Flags().StringVar(&recordKwargs, "kwargs", "", "keyword arguments as JSON")

	recordSearchCmd.Flags().IntVar(&recordLimit, "limit", 0, "maximum matches to return")

	recordCommentCmd.Flags().IntVar(&recordUser, "user", 0, "post as this user id")
	recordNoteCmd.Flags().IntVar(&recordUser, "user", 0, "post as this user id")
	recordMessagesCmd.Flags().IntVar(&messagesLimit, "limit", 20, "maximum messages to list")

	recordAttachCmd.Flags().StringVar(&recordName, "name", "", "attachment name (defaults to file name)")
	recordDownloadCmd.Flags().StringVar(&recordOutput, "output", "", "output file or directory")
	recordDownloadAllCmd.Flags().StringVar(&recordDir, "dir", ".", "output directory")
	recordDownloadAllCmd.Flags().StringVar(&recordExt, "ext", "", "only download files with this extension")

	recordCmd.AddCommand(recordListCmd)
	recordCmd.AddCommand(recordGetCmd)
	recordCmd.AddCommand(recordCreateCmd)
	recordCmd.AddCommand(recordSetCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	recordCmd.AddCommand(recordFieldsCmd)
	recordCmd.AddCommand(recordURLCmd)
	recordCmd.AddCommand(recordCallCmd)
	recordCmd.AddCommand(recordSearchCmd)
	recordCmd.AddCommand(recordCommentCmd)
	recordCmd.AddCommand(recordNoteCmd)
	recordCmd.AddCommand(recordMessagesCmd)
	recordCmd.AddCommand(recordTagsCmd)
	recordCmd.AddCommand(recordTagCmd)
	recordCmd.AddCommand(recordAttachCmd)
	recordCmd.AddCommand(recordAttachmentsCmd)
	recordCmd.AddCommand(recordDownloadCmd)
	recordCmd.AddCommand(recordDownloadAllCmd)
	rootCmd.AddCommand(recordCmd)
}

func postMessage(cmd *cobra.Command, args []string, note bool) error {
	model, id, err := modelAndID(args)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	svc := records.NewService(s.client)
	if note {
		err = svc.PostNote(cmd.Context(), model, id, args[2], recordUser)
	} else {
		err = svc.PostComment(cmd.Context(), model, id, args[2], recordUser)
	}
	if err != nil {
		return err
	}
	kind := "Comment"
	if note {
		kind = "Note"
	}
	fmt.Printf("%s posted on %s %d\n", kind, model, id)
	return nil
}

func modelAndID(args []string) (string, int, error) {
	model, err := resolveModel(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := parseID(args[1])
	if err != nil {
		return "", 0, err
	}
	return model, id, nil
}

func parseDomain(raw string) ([]any, error) {
	if raw == "" {
		return nil, nil
	}
	var domain []any
	if err := json.Unmarshal([]byte(raw), &domain); err != nil {
		return nil, fmt.Errorf("invalid --domain JSON: %w", err)
	}
	return domain, nil
}

func parseValues(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, fmt.Errorf("--values is required")
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("invalid --values JSON: %w", err)
	}
	return values, nil
}

func splitFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func printRecord(rec odoo.Record) error {
	if jsonOutput {
		return outputJSON(rec)
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, formatValue(rec[k])})
	}
	fmt.Println(ui.KeyValueTable(styles(), pairs))
	return nil
}

func printRecordList(recs []odoo.Record, fields []string) error {
	if jsonOutput {
		return outputJSON(recs)
	}
	headers := append([]string{"ID"}, fields...)
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := []string{strconv.Itoa(rec.ID())}
		for _, f := range fields {
			row = append(row, formatValue(rec[f]))
		}
		rows = append(rows, row)
	}
	fmt.Println(ui.Columns(styles(), headers, rows))
	return nil
}

// formatValue renders a field value the way Odoo users expect: false means
// unset, many2one pairs show "name (id)".
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if !val {
			return ""
		}
		return "true"
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		if id, name, ok := parseMany2OnePair(val); ok {
			return fmt.Sprintf("%s (%d)", name, id)
		}
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

func parseMany2OnePair(val []any) (int, string, bool) {
	if len(val) != 2 {
		return 0, "", false
	}
	id, ok := val[0].(float64)
	if !ok {
		return 0, "", false
	}
	name, ok := val[1].(string)
	if !ok {
		return 0, "", false
	}
	return int(id), name, true
}
