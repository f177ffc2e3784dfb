package engine

// noCopy is embedded by value in types that own unsafe-to-duplicate state
// (here, a storage buffer that piece boundaries index into by position).
// It implements sync.Locker purely so `go vet -copylocks` flags any
// accidental copy of the enclosing struct; Lock/Unlock are never called.
//
// Column must be passed by pointer or moved by reassigning the pointer;
// never dereferenced into a new variable.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
