package calculator

import (
	"encoding/json"
	"strings"
)

const basePrompt = `You are given a picture of hand-drawn mathematics on a black canvas. Find every
expression, equation or problem in it and solve it. Use PEMDAS for arithmetic.

Report each finding as an object with the keys "expr" (the expression as written),
"result" (the answer) and "assign" (true only when the drawing assigns a value to a
variable, for example "x = 4"). The kinds of input you will see:
1. Plain expressions such as 2 + 2 or 3 * (4 - 1): one object per expression.
2. Systems of equations such as x^2 + 2x + 1 = 0: one object per solved variable,
   with "expr" set to the variable name.
3. Assignments such as x = 4 or y = 7: one object per assignment with "assign" true.
4. Word or graphical problems (physics, geometry, a drawn scene): describe the
   problem briefly in "expr" and give the answer in "result".
5. Abstract concepts drawn as a picture: name the concept in "result" and describe
   the drawing in "expr".

Reply with a JSON array of these objects and nothing else. Use double quotes and do
not wrap the array in Markdown.`

// buildPrompt appends the variables the user assigned earlier so the model can
// substitute them.
func buildPrompt(vars map[string]string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if len(vars) > 0 {
		encoded, err := json.Marshal(vars)
		if err == nil {
			b.WriteString("\n\nThese variables were assigned earlier; substitute their values when they appear: ")
			b.Write(encoded)
		}
	}
	return b.String()
}

// stringVars converts the loosely typed request variables to strings.
func stringVars(vars map[string]any) map[string]string {
	out := make(map[string]string, len(vars))
	for name, value := range vars {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = stringify(value)
	}
	return out
}
