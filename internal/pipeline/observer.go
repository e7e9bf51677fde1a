package pipeline

// Observer receives run events. Calls for a single run are never concurrent.
type Observer interface {
	OnProgress(percent int, message string)
	OnDone(path string)
	OnError(message string)
}

// Funcs adapts plain functions to Observer. Nil fields are ignored.
type Funcs struct {
	Progress func(percent int, message string)
	Done     func(path string)
	Error    func(message string)
}

// OnProgress implements Observer.
func (f Funcs) OnProgress(percent int, message string) {
	if f.Progress != nil {
		f.Progress(percent, message)
	}
}

// OnDone implements Observer.
func (f Funcs) OnDone(path string) {
	if f.Done != nil {
		f.Done(path)
	}
}

// OnError implements Observer.
func (f Funcs) OnError(message string) {
	if f.Error != nil {
		f.Error(message)
	}
}

// fanout forwards events to several observers in order.
type fanout []Observer

func (f fanout) OnProgress(percent int, message string) {
	for _, o := range f {
		o.OnProgress(percent, message)
	}
}

func (f fanout) OnDone(path string) {
	for _, o := range f {
		o.OnDone(path)
	}
}

func (f fanout) OnError(message string) {
	for _, o := range f {
		o.OnError(message)
	}
}
