package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/intrntsrfr/cogs/guild"
)

var ErrNoSession = errors.New("no discord session")

// mapErr turns discordgo failures into the gateway faults of package guild.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return fmt.Errorf("%w: %w", guild.ErrUnknown, err)
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", guild.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", guild.ErrUnknown, err)
		}
	}
	return err
}
