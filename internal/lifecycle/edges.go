package lifecycle

import "github.com/mkandawire/docket/internal/domain"

// edge is one directed status change.
type edge struct {
	from, to domain.Status
}

// allowedEdges is the complete transition table: an edge absent here is
// invalid for every role. Guards list the roles permitted to take the edge;
// admin appears on every edge.
var allowedEdges = map[edge][]domain.Role{
	// Registry intake.
	{domain.StatusFiled, domain.StatusVerified}:   {domain.RoleRegistrar, domain.RoleAdmin},
	{domain.StatusFiled, domain.StatusRejected}:   {domain.RoleRegistrar, domain.RoleAdmin},
	{domain.StatusVerified, domain.StatusSummons}: {domain.RoleRegistrar, domain.RoleAdmin},
	{domain.StatusSummons, domain.StatusActive}:   {domain.RoleRegistrar, domain.RoleAdmin},

	// Courtroom flow.
	{domain.StatusActive, domain.StatusTakesOff}:       {domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusTakesOff, domain.StatusRecording}:    {domain.RoleJudge, domain.RoleClerk, domain.RoleAdmin},
	{domain.StatusRecording, domain.StatusAdjournment}: {domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusRecording, domain.StatusRuling}:      {domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusActive, domain.StatusAdjournment}:    {domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusAdjournment, domain.StatusActive}:    {domain.RoleJudge, domain.RoleRegistrar, domain.RoleAdmin},
	{domain.StatusActive, domain.StatusRuling}:         {domain.RoleJudge, domain.RoleAdmin},

	// Disposition.
	{domain.StatusRuling, domain.StatusClosed}:    {domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusRuling, domain.StatusAppeal}:    {domain.RoleLawyer, domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusAppeal, domain.StatusActive}:    {domain.RoleRegistrar, domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusActive, domain.StatusClosed}:    {domain.RoleJudge, domain.RoleAdmin},
	{domain.StatusActive, domain.StatusDismissed}: {domain.RoleJudge, domain.RoleAdmin},
}

// edgeRequirements names patch fields that must be present and non-empty
// for an edge to apply. The named handlers supply them; generic Transition
// callers must too.
var edgeRequirements = map[edge][]string{
	{domain.StatusFiled, domain.StatusRejected}:   {"rejectionReason"},
	{domain.StatusVerified, domain.StatusSummons}: {"summonsDate"},
}

func roleAllowed(roles []domain.Role, r domain.Role) bool {
	for _, allowed := range roles {
		if allowed == r {
			return true
		}
	}
	return false
}
