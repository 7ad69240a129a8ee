package game

import (
	"math/rand"

	"github.com/antonkh/mafia-arena/internal/models"
)

// BuildRoleSet returns the role multiset for a population. Populations of
// four or more get min(mafiaCount, population/2) mafia plus exactly one
// doctor and one detective; smaller populations use reduced fixed templates.
func BuildRoleSet(population, mafiaCount int) []models.Role {
	switch {
	case population >= 4:
		actual := mafiaCount
		if max := population / 2; actual > max {
			actual = max
		}
		roles := make([]models.Role, 0, population)
		for i := 0; i < actual; i++ {
			roles = append(roles, models.RoleMafia)
		}
		roles = append(roles, models.RoleDoctor, models.RoleDetective)
		for len(roles) < population {
			roles = append(roles, models.RoleCitizen)
		}
		return roles
	case population == 3:
		return []models.Role{models.RoleMafia, models.RoleDoctor, models.RoleCitizen}
	case population == 2:
		return []models.Role{models.RoleMafia, models.RoleCitizen}
	case population == 1:
		return []models.Role{models.RoleMafia}
	default:
		return nil
	}
}

// assignRoles shuffles the role multiset and deals it out in roster order,
// marking everyone alive.
func assignRoles(players []*models.Player, mafiaCount int, rng *rand.Rand) {
	roles := BuildRoleSet(len(players), mafiaCount)
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	for i, p := range players {
		p.Role = roles[i]
		p.Alive = true
	}
}
