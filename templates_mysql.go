package main

import "strings"

func init() {
	registerTemplateSet(mysqlTemplateSet())
}

const mysqlColumn = "$(tableAlias).`$(columnName)`"

func mysqlQuoted(expr string) string {
	return `if(` + mysqlColumn + ` is null,'',concat('"',replace(replace(` + expr + `,'\\','\\\\'),'"','\\"'),'"'))`
}

func mysqlPlain(expr string) string {
	return `if(` + mysqlColumn + ` is null,'',concat('"',` + expr + `,'"'))`
}

const mysqlLogTail = `$(channelExpression),
                $(txIdExpression),
                $(sourceNodeExpression),
                $(externalSelect),
                $(createTimeExpression));`

func mysqlKeysEvent(event, timing, eventType, keys string) string {
	return "create trigger $(triggerName) after " + timing + " on $(schemaName)$(tableName)\n" +
		`for each row begin
    $(custom_before_` + event + `_text)
    if $(sync` + syncName(event) + `Condition) and $(syncOnIncomingBatchCondition) then
        begin
            declare exit handler for sqlexception
            begin
                insert into $(defaultSchema)$(prefixName)_data
                    (table_name, event_type, trigger_hist_id, pk_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                    values('$(targetTableName)', '` + eventType + `', $(triggerHistoryId),
                    $(toLobAlways)concat(` + keys + `),
                    ` + mysqlLogTail + `
            end;
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', '` + eventType + `', $(triggerHistoryId),
                concat(` + keys + `),
                ` + mysqlLogTail + `
        end;
    end if;
    $(custom_on_` + event + `_text)
end`
}

func syncName(event string) string {
	return "On" + strings.ToUpper(event[:1]) + event[1:]
}

func mysqlTemplateSet() *TemplateSet {
	return &TemplateSet{
		Dialect:  "mysql",
		Encoding: BinaryHex,
		Columns: map[Category]ColumnTemplate{
			CategoryText:        {Primary: mysqlQuoted(mysqlColumn)},
			CategoryNumeric:     {Primary: mysqlPlain(`$(numberConversion)`)},
			CategoryBoolean:     {Primary: `if(` + mysqlColumn + ` is null,'',if(` + mysqlColumn + `,'"1"','"0"'))`},
			CategoryDate:        {Primary: mysqlPlain(`date_format(` + mysqlColumn + `,'%Y-%m-%d')`)},
			CategoryTime:        {Primary: mysqlPlain(`concat(time_format(` + mysqlColumn + `,'%H:%i:%s.%f'),'000')`)},
			CategoryTimestamp:   {Primary: mysqlPlain(`concat(date_format(` + mysqlColumn + `,'%Y-%m-%d %H:%i:%s.%f'),'000')`)},
			CategoryTimestampTZ: {Primary: mysqlPlain(`concat(date_format(convert_tz(` + mysqlColumn + `,@@session.time_zone,'+00:00'),'%Y-%m-%d %H:%i:%s.%f'),'000 +00:00')`)},
			CategoryClob:        {Primary: mysqlQuoted(mysqlColumn)},
			CategoryBlob:        {Primary: mysqlPlain(`hex(` + mysqlColumn + `)`)},
			CategoryBinary:      {Primary: mysqlPlain(`hex(` + mysqlColumn + `)`)},
			CategoryGeometry:    {Primary: mysqlQuoted(`st_astext(` + mysqlColumn + `)`)},
		},
		ColumnJoin: `,',',`,
		// MySQL renders exact decimals through cast as char regardless of
		// the precision setting.
		NumberConversion: `cast(` + mysqlColumn + ` as char)`,
		NumberText:       `cast(` + mysqlColumn + ` as char)`,
		Expressions: map[string]string{
			"txIdExpression":               "$(defaultSchema)$(prefixName)_transaction_id()",
			"sourceNodeExpression":         "@$(prefixName)_node_id",
			"syncOnIncomingBatchCondition": "@$(prefixName)_disable_trigger is null",
		},
		CreateTime:     "CURRENT_TIMESTAMP",
		CreateTimeZone: "convert_tz(CURRENT_TIMESTAMP, @@session.time_zone, '%s')",
		Inline:         LobBinding{Type: "text", Changed: "not (var_row_data <=> var_old_data)"},
		Lob:            LobBinding{Type: "mediumtext", Changed: "not (var_row_data <=> var_old_data)"},
		Fallback:       LobBinding{Type: "longtext", Changed: "not (var_fallback_row_data <=> var_fallback_old_data)"},
		DropTrigger:    "drop trigger if exists $(schemaName)$(triggerName)",
		Structural: map[TriggerKind]string{
			KindInsert: "create trigger $(triggerName) after insert on $(schemaName)$(tableName)\n" +
				`for each row begin
    $(custom_before_insert_text)
    if $(syncOnInsertCondition) and $(syncOnIncomingBatchCondition) then
        begin
            declare exit handler for sqlexception
            begin
                insert into $(defaultSchema)$(prefixName)_data
                    (table_name, event_type, trigger_hist_id, row_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                    values('$(targetTableName)', 'I', $(triggerHistoryId),
                    $(toLobAlways)concat($(fallbackColumns)),
                    ` + mysqlLogTail + `
            end;
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, row_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'I', $(triggerHistoryId),
                $(toLob)concat($(columns)),
                ` + mysqlLogTail + `
        end;
    end if;
    $(custom_on_insert_text)
end`,
			KindInsertReload: mysqlKeysEvent("insert", "insert", "R", "$(newKeys)"),
			KindUpdate: "create trigger $(triggerName) after update on $(schemaName)$(tableName)\n" +
				`for each row begin
    declare var_row_data $(lobType);
    declare var_old_data $(lobType);
    $(custom_before_update_text)
    if $(syncOnUpdateCondition) and $(syncOnIncomingBatchCondition) then
        begin
            declare exit handler for sqlexception
            begin
                declare var_fallback_row_data $(fallbackLobType);
                declare var_fallback_old_data $(fallbackLobType);
                set var_fallback_row_data = concat($(fallbackColumns));
                set var_fallback_old_data = concat($(fallbackOldColumns));
                if $(fallbackDataHasChangedCondition) then
                    insert into $(defaultSchema)$(prefixName)_data
                        (table_name, event_type, trigger_hist_id, pk_data, row_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                        values('$(targetTableName)', 'U', $(triggerHistoryId),
                        concat($(oldKeys)),
                        var_fallback_row_data,
                        var_fallback_old_data,
                        ` + mysqlLogTail + `
                end if;
            end;
            set var_row_data = concat($(columns));
            set var_old_data = concat($(oldColumns));
            if $(dataHasChangedCondition) then
                insert into $(defaultSchema)$(prefixName)_data
                    (table_name, event_type, trigger_hist_id, pk_data, row_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                    values('$(targetTableName)', 'U', $(triggerHistoryId),
                    concat($(oldKeys)),
                    var_row_data,
                    var_old_data,
                    ` + mysqlLogTail + `
            end if;
        end;
    end if;
    $(custom_on_update_text)
end`,
			KindUpdateReload: mysqlKeysEvent("update", "update", "R", "$(oldKeys)"),
			KindDelete: "create trigger $(triggerName) after delete on $(schemaName)$(tableName)\n" +
				`for each row begin
    $(custom_before_delete_text)
    if $(syncOnDeleteCondition) and $(syncOnIncomingBatchCondition) then
        begin
            declare exit handler for sqlexception
            begin
                insert into $(defaultSchema)$(prefixName)_data
                    (table_name, event_type, trigger_hist_id, pk_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                    values('$(targetTableName)', 'D', $(triggerHistoryId),
                    concat($(oldKeys)),
                    $(toLobAlways)concat($(fallbackOldColumns)),
                    ` + mysqlLogTail + `
            end;
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'D', $(triggerHistoryId),
                concat($(oldKeys)),
                $(toLob)concat($(oldColumns)),
                ` + mysqlLogTail + `
        end;
    end if;
    $(custom_on_delete_text)
end`,
			KindInitialLoad: `select $(queryHint) $(toLob)concat($(columns)) from $(schemaName)$(tableName) t where $(whereClause)`,
		},
	}
}
