package domain

import (
	"sort"
	"strings"
)

// Tier enumerates staff privilege levels, from most to least privileged.
type Tier string

const (
	TierAdministrator Tier = "ADMINISTRATOR"
	TierOwner         Tier = "OWNER"
	TierManager       Tier = "MANAGER"
	TierAssistant     Tier = "ASSISTANT"
)

// RoleToken is the permission identifier granted for a Tier.
type RoleToken string

const (
	TokenAdministrator RoleToken = "ROLE_ADMINISTRATOR"
	TokenOwner         RoleToken = "ROLE_OWNER"
	TokenManager       RoleToken = "ROLE_MANAGER"
	TokenAssistant     RoleToken = "ROLE_ASSISTANT"
)

// RoleTokenRecord is the persisted catalog row for a token.
type RoleTokenRecord struct {
	ID    int
	Token RoleToken
}

// Tiers lists every tier, most privileged first.
var Tiers = []Tier{TierAdministrator, TierOwner, TierManager, TierAssistant}

var tierTokens = map[Tier]RoleToken{
	TierAdministrator: TokenAdministrator,
	TierOwner:         TokenOwner,
	TierManager:       TokenManager,
	TierAssistant:     TokenAssistant,
}

// tierGrants is the cumulative downward grant: a tier holds its own token plus the
// tokens of every less privileged tier.
var tierGrants = map[Tier][]RoleToken{
	TierAdministrator: {TokenAdministrator, TokenOwner, TokenManager, TokenAssistant},
	TierOwner:         {TokenOwner, TokenManager, TokenAssistant},
	TierManager:       {TokenManager, TokenAssistant},
	TierAssistant:     {TokenAssistant},
}

// Stable catalog identifiers used when seeding role tokens.
var roleTokenIDs = map[RoleToken]int{
	TokenAdministrator: 1,
	TokenOwner:         2,
	TokenManager:       3,
	TokenAssistant:     4,
}

// Token returns the RoleToken corresponding to the tier.
func (t Tier) Token() RoleToken {
	return tierTokens[t]
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	_, ok := tierTokens[t]
	return ok
}

// ParseTier resolves a tier name case-insensitively.
func ParseTier(value string) (Tier, bool) {
	tier := Tier(strings.ToUpper(strings.TrimSpace(value)))
	if !tier.Valid() {
		return "", false
	}
	return tier, true
}

// PermissionSet is the set of tokens granted to a tier.
type PermissionSet map[RoleToken]struct{}

// Has reports whether token is granted.
func (p PermissionSet) Has(token RoleToken) bool {
	_, ok := p[token]
	return ok
}

// Tokens returns the granted tokens in catalog order.
func (p PermissionSet) Tokens() []RoleToken {
	out := make([]RoleToken, 0, len(p))
	for token := range p {
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool {
		return roleTokenIDs[out[i]] < roleTokenIDs[out[j]]
	})
	return out
}

// PermissionsFor returns the cumulative token set for tier. Unknown tiers get nothing.
func PermissionsFor(tier Tier) PermissionSet {
	grants := tierGrants[tier]
	set := make(PermissionSet, len(grants))
	for _, token := range grants {
		set[token] = struct{}{}
	}
	return set
}

// RoleTokenCatalog returns the four tokens with their stable identifiers.
func RoleTokenCatalog() []RoleTokenRecord {
	out := make([]RoleTokenRecord, 0, len(Tiers))
	for _, tier := range Tiers {
		token := tier.Token()
		out = append(out, RoleTokenRecord{ID: roleTokenIDs[token], Token: token})
	}
	return out
}
