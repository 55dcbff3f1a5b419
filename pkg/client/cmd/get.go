package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var asJSON bool

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Fetch a route or static asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := fetch(baseURL(host), args[0], asJSON)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}

		statusColor := color.New(color.Bold, color.FgGreen)
		if res.StatusCode >= 400 {
			statusColor = color.New(color.Bold, color.FgRed)
		}
		statusColor.Printf("%d ", res.StatusCode)
		color.New(color.FgHiBlack).Printf("%s, %d bytes\n", res.Header.Get("Content-Type"), len(body))
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&asJSON, "json", false, "Ask for JSON errors (sends Accept: application/json)")
}

func baseURL(h string) string {
	if strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
		return strings.TrimSuffix(h, "/")
	}
	return "http://" + strings.TrimSuffix(h, "/")
}

func fetch(base, path string, wantJSON bool) (*http.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(http.MethodGet, base+path, nil)
	if err != nil {
		return nil, err
	}
	if wantJSON {
		req.Header.Set("Accept", "application/json")
	}
	return http.DefaultClient.Do(req)
}
