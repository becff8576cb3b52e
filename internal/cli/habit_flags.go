package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// Flag names shared by create and update.
const (
	flagName         = "name"
	flagDescription  = "description"
	flagDifficulty   = "difficulty"
	flagCategory     = "category"
	flagColor        = "color"
	flagTag          = "tag"
	flagType         = "type"
	flagGoal         = "goal"
	flagQuantifiable = "quantifiable"
	flagUnit         = "unit"
	flagStartTime    = "start-time"
	flagSubtask      = "subtask"
	flagLimit        = "limit"
)

// variantFlags are the flags that belong to a variant.
var variantFlags = []string{flagType, flagGoal, flagQuantifiable, flagUnit, flagStartTime, flagSubtask, flagLimit}

// habitFlags holds the editable habit fields as flags.
type habitFlags struct {
	name         string
	description  string
	difficulty   int
	category     string
	color        string
	tags         []string
	habitType    string
	goal         float64
	quantifiable bool
	unit         string
	startTime    string
	subtasks     []string
	limit        float64
}

func (f *habitFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, flagName, "", "habit name")
	fs.StringVar(&f.description, flagDescription, "", "free-text description")
	fs.IntVar(&f.difficulty, flagDifficulty, 0, "difficulty level")
	fs.StringVar(&f.category, flagCategory, "", "category")
	fs.StringVar(&f.color, flagColor, "", "display color, e.g. #4caf50")
	fs.StringArrayVar(&f.tags, flagTag, nil, "tag (repeatable)")
	fs.StringVar(&f.habitType, flagType, string(types.HabitGood), "habit type: good or bad")
	fs.Float64Var(&f.goal, flagGoal, 1, "daily goal of a good habit")
	fs.BoolVar(&f.quantifiable, flagQuantifiable, false, "good habit is measured in units")
	fs.StringVar(&f.unit, flagUnit, "", "unit of a quantifiable good habit")
	fs.StringVar(&f.startTime, flagStartTime, "", "start time of a good habit, e.g. 07:30")
	fs.StringArrayVar(&f.subtasks, flagSubtask, nil, "subtask of a good habit (repeatable)")
	fs.Float64Var(&f.limit, flagLimit, 0, "daily limit of a bad habit")
}

// variant builds the variant from base, overriding the fields whose flags
// changed. The type flag switches variants; otherwise base's type is
// kept.
func (f *habitFlags) variant(op string, base types.Variant, changed func(string) bool) (types.Variant, error) {
	kind := types.HabitGood
	if base != nil {
		kind = base.Type()
	}
	if changed(flagType) {
		switch f.habitType {
		case string(types.HabitGood), string(types.HabitBad):
			kind = types.HabitType(f.habitType)
		default:
			return nil, invalid(op, "invalid type %q (valid: good, bad)", f.habitType)
		}
	}

	if kind == types.HabitBad {
		b, _ := base.(types.BadHabit)
		if changed(flagLimit) {
			b.Limit = f.limit
		}
		return b, nil
	}

	g, ok := base.(types.GoodHabit)
	if !ok {
		g = types.GoodHabit{Goal: 1}
	}
	if changed(flagGoal) {
		g.Goal = f.goal
	}
	if changed(flagQuantifiable) {
		g.IsQuantifiable = f.quantifiable
	}
	if changed(flagUnit) {
		g.Unit = f.unit
	}
	if changed(flagStartTime) {
		g.StartTime = f.startTime
	}
	if changed(flagSubtask) {
		g.Subtasks = f.subtasks
	}
	return g, nil
}

// habit builds a new habit from every flag.
func (f *habitFlags) habit(op string) (types.Habit, error) {
	all := func(string) bool { return true }
	v, err := f.variant(op, nil, all)
	if err != nil {
		return types.Habit{}, err
	}
	return types.Habit{
		Name:            f.name,
		Description:     f.description,
		DifficultyLevel: f.difficulty,
		Category:        f.category,
		ColorCode:       f.color,
		Tags:            f.tags,
		Variant:         v,
	}, nil
}

// update builds an update from the changed flags. current supplies the
// variant fields that did not change.
func (f *habitFlags) update(op string, cmd *cobra.Command, current types.Habit) (types.HabitUpdate, error) {
	changed := cmd.Flags().Changed
	var u types.HabitUpdate
	if changed(flagName) {
		u.Name = &f.name
	}
	if changed(flagDescription) {
		u.Description = &f.description
	}
	if changed(flagDifficulty) {
		u.DifficultyLevel = &f.difficulty
	}
	if changed(flagCategory) {
		u.Category = &f.category
	}
	if changed(flagColor) {
		u.ColorCode = &f.color
	}
	if changed(flagTag) {
		u.Tags = append([]string{}, f.tags...)
	}
	for _, name := range variantFlags {
		if !changed(name) {
			continue
		}
		v, err := f.variant(op, current.Variant, changed)
		if err != nil {
			return types.HabitUpdate{}, err
		}
		u.Variant = v
		break
	}
	return u, nil
}
