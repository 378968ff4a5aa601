package config

import (
	"os"

	"github.com/spf13/viper"
)

// LoadSimpleFINToken returns the SimpleFIN claim token from Viper
// settings, falling back to the SIMPLEFIN_TOKEN environment variable.
func LoadSimpleFINToken() string {
	token := viper.GetString("simplefin.token")
	if token == "" {
		token = os.Getenv("SIMPLEFIN_TOKEN")
	}
	return token
}
