package report

import (
	"slices"
	"strings"
)

// FieldClasses groups payroll view columns by what they hold.
type FieldClasses struct {
	Basic     []string
	Earning   []string
	Deduction []string
	Other     []string
}

// Total returns the number of classified fields.
func (c FieldClasses) Total() int {
	return len(c.Basic) + len(c.Earning) + len(c.Deduction) + len(c.Other)
}

//nolint:gochecknoglobals // Fixed field catalogue of the payroll view.
var (
	basicFields = []string{
		"薪资条目ID", "员工ID", "薪资期间ID", "薪资运行ID", "员工编号", "姓名", "身份证号",
		"部门名称", "职位名称", "人员类别", "薪资期间名称", "薪资期间开始日期", "薪资期间结束日期",
		"薪资发放日期", "入职日期", "员工状态",
	}
	earningFields = []string{
		"应发合计", "基本工资", "岗位工资", "级别工资", "薪级工资", "绩效工资",
		"奖励性绩效工资", "基础性绩效工资", "津贴", "补助", "各种津补贴",
	}
	deductionFields = []string{
		"扣除合计", "个人所得税", "养老保险个人应缴金额", "医疗保险个人缴纳金额",
		"失业保险个人应缴金额", "职业年金个人应缴费额", "个人缴住房公积金",
	}
	earningKeywords   = []string{"工资", "津贴", "补贴", "奖", "补发", "绩效"}
	earningExclusions = []string{"扣", "个人", "单位"}
	deductionKeywords = []string{"个人", "扣", "税"}
)

// ClassifyFields sorts field names into basic, earning, deduction and other.
// Names outside the fixed catalogue are classified by keyword. A name that
// looks like an earning but mentions a deduction or employer share is left
// unclassified, so Total can be less than len(fields).
func ClassifyFields(fields []string) FieldClasses {
	var c FieldClasses
	for _, f := range fields {
		switch {
		case slices.Contains(basicFields, f):
			c.Basic = append(c.Basic, f)
		case slices.Contains(earningFields, f):
			c.Earning = append(c.Earning, f)
		case slices.Contains(deductionFields, f):
			c.Deduction = append(c.Deduction, f)
		case containsAny(f, earningKeywords):
			if !containsAny(f, earningExclusions) {
				c.Earning = append(c.Earning, f)
			}
		case containsAny(f, deductionKeywords):
			c.Deduction = append(c.Deduction, f)
		default:
			c.Other = append(c.Other, f)
		}
	}
	return c
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
