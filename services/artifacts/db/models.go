package db

type Artifact struct {
	ID        int64
	RunID     string
	Name      string
	FileName  string
	Path      string
	SizeBytes int64
	Sha256    string
	CreatedAt int64
	ExpiresAt int64
}
