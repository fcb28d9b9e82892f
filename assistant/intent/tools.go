package intent

import "github.com/cloudwego/eino/schema"

// ToolInfos is the fixed action catalog handed to the language oracle. It
// must stay in lockstep with the Kind constants and Parse.
func ToolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: string(KindSearchVehicles),
			Desc: "Search available vehicles by type (sedan, SUV, truck, compact, electric, hybrid) and/or brand.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"car_type": {Type: schema.String, Desc: "Type of car the customer wants"},
				"brand":    {Type: schema.String, Desc: "Vehicle brand"},
			}),
		},
		{
			Name: string(KindVehicleDetails),
			Desc: "Get detailed information about one vehicle by id or name.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"vehicle_id": {Type: schema.String, Desc: "Vehicle id or customer-facing name", Required: true},
			}),
		},
		{
			Name: string(KindListVehicles),
			Desc: "List all vehicles currently available for test drives.",
		},
		{
			Name: string(KindCheckAvailability),
			Desc: "Check whether a date and time is free for a test drive.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"vehicle_id": {Type: schema.String, Desc: "Vehicle id or name", Required: true},
				"date":       {Type: schema.String, Desc: "Date in YYYY-MM-DD", Required: true},
				"time":       {Type: schema.String, Desc: "Time in HH:MM (24h)", Required: true},
			}),
		},
		{
			Name: string(KindBookTestDrive),
			Desc: "Book a test drive for a customer. Collect name, phone, vehicle, date and time first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customer_name":  {Type: schema.String, Desc: "Customer full name", Required: true},
				"customer_phone": {Type: schema.String, Desc: "Customer phone number", Required: true},
				"customer_email": {Type: schema.String, Desc: "Customer email"},
				"vehicle_id":     {Type: schema.String, Desc: "Vehicle id or name", Required: true},
				"preferred_date": {Type: schema.String, Desc: "Date in YYYY-MM-DD", Required: true},
				"preferred_time": {Type: schema.String, Desc: "Time in HH:MM (24h)", Required: true},
			}),
		},
		{
			Name: string(KindDealershipInfo),
			Desc: "Get dealership contact information and working hours.",
		},
	}
}
