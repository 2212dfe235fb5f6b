package aireply

import (
	"fmt"
	"strings"
	"time"

	"github.com/oggyb/muzz-match/internal/db"
)

// Role tags a history turn from the synthetic profile's point of view.
type Role string

const (
	RoleAssistant Role = "assistant" // written by the synthetic profile
	RoleUser      Role = "user"      // written by the human
)

// Persona is the part of a profile the generator sees.
type Persona struct {
	Name      string
	Gender    string
	Age       int
	Bio       string
	Interests []string
	City      string
}

func personaOf(u *db.User, now time.Time) Persona {
	return Persona{
		Name:      u.Name,
		Gender:    u.Gender,
		Age:       u.Age(now),
		Bio:       u.Bio,
		Interests: u.Interests,
		City:      u.City,
	}
}

// Turn is one message of the recent history.
type Turn struct {
	Role    Role
	Content string
}

// Request is everything a Generator needs for one reply.
type Request struct {
	Self    Persona
	Other   Persona
	History []Turn
}

func historyOf(msgs []db.Message, syntheticID uint64) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		role := RoleUser
		if m.SenderID == syntheticID {
			role = RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Content: m.Content})
	}
	return turns
}

// SystemPrompt is the instruction given ahead of the history.
func SystemPrompt(self, other Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, chatting with a match on a dating app.", nameOr(self.Name, "a dating app member"))
	writePersona(&b, "About you", self)
	writePersona(&b, "About the person you are talking to", other)
	b.WriteString("\nReply as yourself in one or two short, casual sentences. ")
	b.WriteString("Be warm and curious, ask about them now and then, and never mention being an AI.")
	return b.String()
}

func writePersona(b *strings.Builder, title string, p Persona) {
	fmt.Fprintf(b, "\n%s:", title)
	if p.Name != "" {
		fmt.Fprintf(b, "\n- name: %s", p.Name)
	}
	if p.Gender != "" {
		fmt.Fprintf(b, "\n- gender: %s", p.Gender)
	}
	if p.Age > 0 {
		fmt.Fprintf(b, "\n- age: %d", p.Age)
	}
	if p.City != "" {
		fmt.Fprintf(b, "\n- lives in: %s", p.City)
	}
	if p.Bio != "" {
		fmt.Fprintf(b, "\n- bio: %s", p.Bio)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(b, "\n- interests: %s", strings.Join(p.Interests, ", "))
	}
}

func nameOr(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
