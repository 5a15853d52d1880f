package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// MemberRepository exposes the board membership reference data.
type MemberRepository interface {
	ListMembers(ctx context.Context) ([]Member, error)
	GetMember(ctx context.Context, id string) (Member, error)
	UpsertMember(ctx context.Context, member Member) error
}

// MemberService serves the board directory used to address convocations. The
// roster is reference data: it is seeded at startup and read afterwards.
type MemberService struct {
	members MemberRepository
	logger  *slog.Logger
}

// NewMemberService wires the directory repository.
func NewMemberService(members MemberRepository, logger *slog.Logger) *MemberService {
	return &MemberService{members: members, logger: defaultLogger(logger)}
}

// ListMembers returns the board roster ordered by last name.
func (s *MemberService) ListMembers(ctx context.Context) ([]Member, error) {
	if s == nil {
		return nil, fmt.Errorf("MemberService is nil")
	}
	if s.members == nil {
		return nil, fmt.Errorf("member repository not configured")
	}

	members, err := s.members.ListMembers(ctx)
	if err != nil {
		return nil, mapSessionRepoError(err)
	}

	ordered := make([]Member, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		li, lj := strings.ToLower(ordered[i].LastName), strings.ToLower(ordered[j].LastName)
		if li == lj {
			return strings.ToLower(ordered[i].Name) < strings.ToLower(ordered[j].Name)
		}
		return li < lj
	})
	return ordered, nil
}

// GetMember returns one board member by identity.
func (s *MemberService) GetMember(ctx context.Context, id string) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}

	member, err := s.members.GetMember(ctx, id)
	if err != nil {
		return Member{}, mapSessionRepoError(err)
	}
	return member, nil
}

// SeedRoster upserts the given members into the directory. Entries missing an
// id or an email are skipped with a warning rather than failing the whole
// seed, so one malformed roster line does not block startup.
func (s *MemberService) SeedRoster(ctx context.Context, members []Member) error {
	if s == nil {
		return fmt.Errorf("MemberService is nil")
	}
	if s.members == nil {
		return fmt.Errorf("member repository not configured")
	}

	seeded := 0
	for _, member := range members {
		if strings.TrimSpace(member.ID) == "" || strings.TrimSpace(member.Email) == "" {
			s.logger.WarnContext(ctx, "skipping roster entry without id or email",
				"member_id", member.ID, "last_name", member.LastName)
			continue
		}
		if err := s.members.UpsertMember(ctx, member); err != nil {
			return fmt.Errorf("failed to seed member %s: %w", member.ID, mapSessionRepoError(err))
		}
		seeded++
	}
	s.logger.InfoContext(ctx, "board roster seeded", "members", seeded)
	return nil
}

// MemberEmails flattens the roster into notification recipient addresses.
func (s *MemberService) MemberEmails(ctx context.Context) ([]string, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(members))
	for _, m := range members {
		if strings.TrimSpace(m.Email) != "" {
			emails = append(emails, m.Email)
		}
	}
	return emails, nil
}
