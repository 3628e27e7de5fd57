// Command refbot runs the referral and payout Telegram bot.
package main

import (
	"log"

	corecmd "github.com/m3rciful/refbot/core/cmd"
	"github.com/m3rciful/refbot/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
