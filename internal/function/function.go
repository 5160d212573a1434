package function

// Function describes an invocable function. Each function gets a dedicated
// container pool, sized by MaxConcurrency.
type Function struct {
	Name           string
	Image          string
	MaxConcurrency int
}

func New(name string, image string, maxConcurrency int) *Function {
	return &Function{Name: name, Image: image, MaxConcurrency: maxConcurrency}
}

func (f *Function) String() string {
	return f.Name
}
