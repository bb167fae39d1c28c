package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var locationsCountry string

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List supported target locations",
	Long:  "Fetches the locations and languages the provider supports, for picking target.location_code and target.language_code.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := initClient()
		if err != nil {
			return err
		}

		locations, err := client.Locations(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "fetch locations")
		}

		country := strings.ToUpper(strings.TrimSpace(locationsCountry))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tCOUNTRY\tLANGUAGES")
		for _, loc := range locations {
			if country != "" && loc.CountryISOCode != country {
				continue
			}
			langs := make([]string, 0, len(loc.AvailableLanguages))
			for _, l := range loc.AvailableLanguages {
				langs = append(langs, l.LanguageCode)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				loc.LocationCode, loc.LocationName, loc.CountryISOCode, strings.Join(langs, ","))
		}
		return w.Flush()
	},
}

func init() {
	locationsCmd.Flags().StringVar(&locationsCountry, "country", "", "filter by ISO country code (e.g. CA)")
	rootCmd.AddCommand(locationsCmd)
}
