package testutil

// HelloWorld prints "Hello World!\n".
const HelloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

// Program is a source text together with the input it expects.
type Program struct {
	Name  string
	Src   string
	Input string
}

// Programs is a small corpus covering every operation, nested loops, tape
// wrap-around and input handling.
var Programs = []Program{
	{Name: "increment", Src: "+."},
	{Name: "multiply", Src: "++++++[->++++<]>."},
	{Name: "hello", Src: HelloWorld},
	{Name: "echo", Src: ",[.,]", Input: "brain\x00"},
	{Name: "wrap", Src: ">>>+<<<-"},
	{Name: "clear", Src: "+++++[-]>++<[>.<]"},
	{Name: "nested", Src: "++[>+++[>++<-]<-]>>."},
}
