package control

import "sync"

// Command asks for a joint to be moved to a position.
type Command struct {
	Joint    string
	Position float64
}

// InputSource supplies joint commands once per frame. Poll must not block.
type InputSource interface {
	Poll() []Command
}

// ChannelInput drains whatever commands are waiting on a channel.
type ChannelInput struct {
	ch <-chan Command
}

// NewChannelInput returns an InputSource reading from ch.
func NewChannelInput(ch <-chan Command) *ChannelInput {
	return &ChannelInput{ch: ch}
}

// Poll returns the commands queued since the last call.
func (in *ChannelInput) Poll() []Command {
	var out []Command
	for {
		select {
		case cmd, ok := <-in.ch:
			if !ok {
				return out
			}
			out = append(out, cmd)
		default:
			return out
		}
	}
}

// StaticInput applies a fixed list of commands on the first poll and nothing afterwards.
type StaticInput struct {
	once     sync.Once
	commands []Command
}

// NewStaticInput returns an InputSource that yields commands once.
func NewStaticInput(commands ...Command) *StaticInput {
	return &StaticInput{commands: commands}
}

// Poll returns the commands on the first call.
func (in *StaticInput) Poll() []Command {
	var out []Command
	in.once.Do(func() {
		out = in.commands
	})
	return out
}
