package bot

// Agent is an autonomous seat: an identity plus a strategy tier.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Play asks the agent for its move at the given position.
func (a *Agent) Play(p Position) (Move, error) {
	if len(p.Hand()) == 0 {
		return Move{Pass: true}, nil
	}
	return a.Strategy.CalculateMove(p)
}
