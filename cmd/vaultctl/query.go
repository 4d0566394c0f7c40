package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arkilian/vaultquery/internal/codec"
	"github.com/arkilian/vaultquery/internal/vault"
	"github.com/arkilian/vaultquery/pkg/criteria"
	"github.com/arkilian/vaultquery/pkg/types"
)

var queryOpts struct {
	CriteriaFile string
	Status       string
	Type         string
	Notaries     []string
	PageNumber   int
	PageSize     int
	Sort         []string
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one query and print the page as JSON",
	Long: `Run one query against the vault and print the resulting page.

Criteria come either from --criteria (a JSON document, "-" for stdin) or
from --status and --notary. --type restricts results to a contract type and
its stored subtypes.

	vaultctl query --status CONSUMED --sort recordedTime:DESC
	vaultctl query --criteria criteria.json --page 2 --page-size 50
`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	flags := queryCmd.Flags()
	flags.StringVar(&queryOpts.CriteriaFile, "criteria", "", "JSON criteria document, - for stdin")
	flags.StringVar(&queryOpts.Status, "status", "", "State status: UNCONSUMED, CONSUMED or ALL")
	flags.StringVar(&queryOpts.Type, "type", "", "Contract type to query")
	flags.StringSliceVar(&queryOpts.Notaries, "notary", nil, "Notary name (repeatable)")
	flags.IntVar(&queryOpts.PageNumber, "page", types.DefaultPageNumber, "Zero-based page number")
	flags.IntVar(&queryOpts.PageSize, "page-size", types.DefaultPageSize, "Page size")
	flags.StringSliceVar(&queryOpts.Sort, "sort", nil, "Sort column as attribute[:ASC|DESC] (repeatable)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	expr, err := buildCriteria()
	if err != nil {
		return err
	}
	sort, err := parseSort(queryOpts.Sort)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	page := types.PageSpecification{Number: queryOpts.PageNumber, Size: queryOpts.PageSize}

	result, err := vault.QueryBy[json.RawMessage](cmd.Context(), a.Service(), codec.SnappyJSON[json.RawMessage]{},
		expr, page, sort, queryOpts.Type)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func buildCriteria() (criteria.Expression, error) {
	if queryOpts.CriteriaFile != "" {
		if queryOpts.Status != "" || len(queryOpts.Notaries) > 0 {
			return nil, fmt.Errorf("--criteria cannot be combined with --status or --notary")
		}
		var data []byte
		var err error
		if queryOpts.CriteriaFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(queryOpts.CriteriaFile)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read criteria: %w", err)
		}
		return criteria.Decode(data)
	}

	if queryOpts.Status == "" && len(queryOpts.Notaries) == 0 {
		return nil, nil
	}
	c := &criteria.VaultCriteria{Notaries: queryOpts.Notaries}
	if queryOpts.Status != "" {
		status, err := types.ParseStateStatus(queryOpts.Status)
		if err != nil {
			return nil, err
		}
		c.Status = status
	}
	return c, nil
}

func parseSort(values []string) (types.Sort, error) {
	var sort types.Sort
	for _, v := range values {
		attr, dir, found := strings.Cut(v, ":")
		col := types.SortColumn{Attribute: types.SortAttribute(attr), Direction: types.ASC}
		if found {
			d, err := types.ParseDirection(dir)
			if err != nil {
				return sort, err
			}
			col.Direction = d
		}
		sort.Columns = append(sort.Columns, col)
	}
	return sort, nil
}
