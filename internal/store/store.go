package store

// Store aggregates every repository so callers can take a single dependency
// and construct it once at process start, in the manner of the teacher's
// database.Client bundling a *sql.DB and an *ent.Client together.
type Store struct {
	Agents       *AgentStore
	Traces       *TraceStore
	Evaluations  *EvaluationStore
	Certificates *CertificateStore
	Keypairs     *KeypairStore
	TACP         *TACPStore
}

// New builds a Store with every repository initialised empty.
func New() *Store {
	return &Store{
		Agents:       NewAgentStore(),
		Traces:       NewTraceStore(),
		Evaluations:  NewEvaluationStore(),
		Certificates: NewCertificateStore(),
		Keypairs:     NewKeypairStore(),
		TACP:         NewTACPStore(),
	}
}
