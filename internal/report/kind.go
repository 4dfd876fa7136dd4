package report

import "slices"

// Report kind names.
const (
	KindPayroll          = "payroll"
	KindContributionBase = "contribution-base"
	KindCategories       = "categories"
)

// SummaryColumn describes one column of a summary query.
type SummaryColumn struct {
	Key   string
	Label string
	// Total marks columns that are summed into the total row.
	Total bool
}

// Kind describes one exportable report.
type Kind struct {
	Name           string
	Title          string
	FilenamePrefix string
	DetailSQL      string
	SummarySQL     string
	// MatchByName selects rows by a LIKE on the period name instead of the
	// period id.
	MatchByName bool
	// FiltersZeroFields reports whether all-zero numeric columns are dropped
	// by default.
	FiltersZeroFields bool
	// TimestampColumns are rendered with the time of day.
	TimestampColumns []string
	SummaryColumns   []SummaryColumn
}

// QueryArgs returns the arguments for DetailSQL and SummarySQL.
func (k Kind) QueryArgs(info PeriodInfo) []any {
	if k.MatchByName {
		return []any{"%" + info.Name + "%"}
	}
	return []any{info.ID}
}

// IsTimestamp reports whether column is rendered with the time of day.
func (k Kind) IsTimestamp(column string) bool {
	return slices.Contains(k.TimestampColumns, column)
}

// Kinds returns every report kind in display order.
func Kinds() []Kind {
	return []Kind{payrollKind, contributionBaseKind, categoriesKind}
}

// KindNames returns the names of every report kind.
func KindNames() []string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Name
	}
	return names
}


// FindPeriodSQL selects the latest period whose name contains $1.
const FindPeriodSQL = `
SELECT id, name, start_date, end_date, pay_date
FROM payroll.payroll_periods
WHERE name LIKE $1
ORDER BY start_date DESC
LIMIT 1`

//nolint:gochecknoglobals // Fixed report definitions.
var payrollKind = Kind{
	Name:              KindPayroll,
	Title:             "工资明细",
	FilenamePrefix:    "工资明细",
	MatchByName:       true,
	FiltersZeroFields: true,
	TimestampColumns:  []string{"计算时间", "更新时间", "薪资运行日期", "审计时间"},
	DetailSQL: `
SELECT * FROM reports.v_comprehensive_employee_payroll_optimized
WHERE "薪资期间名称" LIKE $1
ORDER BY
    COALESCE("人员类别", '未分类'),
    "员工编号",
    "姓名"`,
	SummarySQL: `
SELECT
    COALESCE("人员类别", '未分类') AS category_name,
    COUNT(*) AS employee_count,
    ROUND(AVG(COALESCE("应发合计", 0)), 2) AS avg_gross_pay,
    ROUND(AVG(COALESCE("扣除合计", 0)), 2) AS avg_deductions,
    ROUND(AVG(COALESCE("实发合计", 0)), 2) AS avg_net_pay,
    ROUND(MIN(COALESCE("应发合计", 0)), 2) AS min_gross_pay,
    ROUND(MAX(COALESCE("应发合计", 0)), 2) AS max_gross_pay,
    ROUND(SUM(COALESCE("应发合计", 0)), 2) AS total_gross_pay,
    ROUND(SUM(COALESCE("实发合计", 0)), 2) AS total_net_pay
FROM reports.v_comprehensive_employee_payroll_optimized
WHERE "薪资期间名称" LIKE $1
GROUP BY "人员类别"
ORDER BY employee_count DESC, category_name`,
	SummaryColumns: []SummaryColumn{
		{Key: "category_name", Label: "类别"},
		{Key: "employee_count", Label: "人数", Total: true},
		{Key: "avg_gross_pay", Label: "平均应发"},
		{Key: "avg_deductions", Label: "平均扣除"},
		{Key: "avg_net_pay", Label: "平均实发"},
		{Key: "min_gross_pay", Label: "最低应发"},
		{Key: "max_gross_pay", Label: "最高应发"},
		{Key: "total_gross_pay", Label: "类别应发总额", Total: true},
		{Key: "total_net_pay", Label: "类别实发总额", Total: true},
	},
}

//nolint:gochecknoglobals // Fixed report definitions.
var contributionBaseKind = Kind{
	Name:           KindContributionBase,
	Title:          "缴费基数",
	FilenamePrefix: "员工缴费基数",
	DetailSQL: `
SELECT
    pp.name AS "薪资周期",
    pp.start_date AS "周期开始日期",
    pp.end_date AS "周期结束日期",
    pp.pay_date AS "发放日期",
    eb.employee_code AS "员工编号",
    COALESCE(eb.full_name, '未知姓名') AS "员工姓名",
    eb.id_number AS "身份证号",
    eb.personnel_category_name AS "人员类别",
    eb.department_name AS "部门名称",
    eb.position_name AS "职位名称",
    eb.hire_date AS "入职日期",
    CASE WHEN eb.is_active THEN '在职' ELSE '离职' END AS "员工状态",
    COALESCE(pc."社保缴费基数", 0.00) AS "社保缴费基数",
    COALESCE(pc."养老保险缴费基数", 0.00) AS "养老保险缴费基数",
    COALESCE(pc."医疗保险缴费基数", 0.00) AS "医疗保险缴费基数",
    COALESCE(pc."住房公积金缴费基数", 0.00) AS "住房公积金缴费基数",
    COALESCE(pc."职业年金缴费基数", 0.00) AS "职业年金缴费基数",
    COALESCE(pc."计税基数", 0.00) AS "个人所得税计税基数",
    COALESCE(pc."基本工资", 0.00) AS "基本工资",
    COALESCE(pc."养老保险个人费率", 0.00) AS "养老保险个人费率",
    COALESCE(pc."医疗保险个人费率", 0.00) AS "医疗保险个人费率",
    COALESCE(pc."住房公积金个人费率", 0.00) AS "住房公积金个人费率",
    COALESCE(pc."养老保险单位费率", 0.00) AS "养老保险单位费率",
    COALESCE(pc."医疗保险单位费率", 0.00) AS "医疗保险单位费率",
    COALESCE(pc."住房公积金单位费率", 0.00) AS "住房公积金单位费率",
    ROUND(COALESCE(pc."养老保险缴费基数", 0.00) * COALESCE(pc."养老保险个人费率", 0.00) / 100, 2) AS "养老保险个人缴费",
    ROUND(COALESCE(pc."医疗保险缴费基数", 0.00) * COALESCE(pc."医疗保险个人费率", 0.00) / 100, 2) AS "医疗保险个人缴费",
    ROUND(COALESCE(pc."住房公积金缴费基数", 0.00) * COALESCE(pc."住房公积金个人费率", 0.00) / 100, 2) AS "住房公积金个人缴费",
    ROUND(COALESCE(pc."养老保险缴费基数", 0.00) * COALESCE(pc."养老保险单位费率", 0.00) / 100, 2) AS "养老保险单位缴费",
    ROUND(COALESCE(pc."医疗保险缴费基数", 0.00) * COALESCE(pc."医疗保险单位费率", 0.00) / 100, 2) AS "医疗保险单位缴费",
    ROUND(COALESCE(pc."住房公积金缴费基数", 0.00) * COALESCE(pc."住房公积金单位费率", 0.00) / 100, 2) AS "住房公积金单位缴费",
    pe.gross_pay AS "应发合计",
    pe.total_deductions AS "扣除合计",
    pe.net_pay AS "实发合计",
    pe.calculated_at AS "计算时间"
FROM payroll.payroll_entries pe
JOIN payroll.payroll_periods pp ON pe.payroll_period_id = pp.id
JOIN reports.v_employees_basic eb ON pe.employee_id = eb.id
LEFT JOIN reports.v_payroll_calculations pc ON pe.id = pc."薪资条目id"
WHERE pp.id = $1
ORDER BY
    COALESCE(eb.personnel_category_name, '未分类'),
    eb.employee_code,
    eb.full_name`,
	SummarySQL: `
SELECT
    COALESCE(eb.personnel_category_name, '未分类') AS category_name,
    COUNT(*) AS employee_count,
    ROUND(AVG(COALESCE(pc."社保缴费基数", 0)), 2) AS avg_social_base,
    ROUND(AVG(COALESCE(pc."住房公积金缴费基数", 0)), 2) AS avg_housing_base,
    ROUND(AVG(COALESCE(pc."计税基数", 0)), 2) AS avg_tax_base,
    ROUND(MIN(COALESCE(pc."社保缴费基数", 0)), 2) AS min_social_base,
    ROUND(MAX(COALESCE(pc."社保缴费基数", 0)), 2) AS max_social_base
FROM payroll.payroll_entries pe
JOIN reports.v_employees_basic eb ON pe.employee_id = eb.id
LEFT JOIN reports.v_payroll_calculations pc ON pe.id = pc."薪资条目id"
WHERE pe.payroll_period_id = $1
GROUP BY eb.personnel_category_name
ORDER BY employee_count DESC, category_name`,
	SummaryColumns: []SummaryColumn{
		{Key: "category_name", Label: "类别"},
		{Key: "employee_count", Label: "人数", Total: true},
		{Key: "avg_social_base", Label: "平均社保基数"},
		{Key: "avg_housing_base", Label: "平均公积金基数"},
		{Key: "avg_tax_base", Label: "平均计税基数"},
		{Key: "min_social_base", Label: "最低社保基数"},
		{Key: "max_social_base", Label: "最高社保基数"},
	},
}

//nolint:gochecknoglobals // Fixed report definitions.
var categoriesKind = Kind{
	Name:           KindCategories,
	Title:          "员工类别",
	FilenamePrefix: "员工身份类别",
	DetailSQL: `
SELECT
    pp.name AS "薪资周期",
    pp.start_date AS "周期开始日期",
    pp.end_date AS "周期结束日期",
    pp.pay_date AS "发放日期",
    eb.employee_code AS "员工编号",
    COALESCE(eb.full_name, '未知姓名') AS "员工姓名",
    eb.id_number AS "身份证号",
    eb.personnel_category_name AS "人员类别名称",
    pc.code AS "人员类别编码",
    pc.description AS "人员类别描述",
    eb.department_name AS "部门名称",
    eb.position_name AS "职位名称",
    eb.hire_date AS "入职日期",
    CASE WHEN eb.is_active THEN '在职' ELSE '离职' END AS "员工状态",
    pe.gross_pay AS "应发合计",
    pe.total_deductions AS "扣除合计",
    pe.net_pay AS "实发合计",
    pe.calculated_at AS "计算时间"
FROM payroll.payroll_entries pe
JOIN payroll.payroll_periods pp ON pe.payroll_period_id = pp.id
JOIN reports.v_employees_basic eb ON pe.employee_id = eb.id
LEFT JOIN hr.personnel_categories pc ON eb.personnel_category_id = pc.id
WHERE pp.id = $1
ORDER BY
    COALESCE(eb.personnel_category_name, '未分类'),
    eb.employee_code,
    "员工姓名"`,
	SummarySQL: `
SELECT
    COALESCE(eb.personnel_category_name, '未分类') AS category_name,
    COUNT(*) AS employee_count,
    ROUND(AVG(pe.gross_pay), 2) AS avg_gross_pay,
    ROUND(AVG(pe.net_pay), 2) AS avg_net_pay
FROM payroll.payroll_entries pe
JOIN reports.v_employees_basic eb ON pe.employee_id = eb.id
WHERE pe.payroll_period_id = $1
GROUP BY eb.personnel_category_name
ORDER BY employee_count DESC, category_name`,
	SummaryColumns: []SummaryColumn{
		{Key: "category_name", Label: "类别"},
		{Key: "employee_count", Label: "人数", Total: true},
		{Key: "avg_gross_pay", Label: "平均应发"},
		{Key: "avg_net_pay", Label: "平均实发"},
	},
}
